package routes

import (
	"errors"

	gql "github.com/graphql-go/graphql"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/orm"
)

var reviewType = gql.NewObject(gql.ObjectConfig{
	Name: "Review",
	Fields: gql.Fields{
		"id":      &gql.Field{Type: gql.Int},
		"name":    &gql.Field{Type: gql.String},
		"rating":  &gql.Field{Type: gql.Int},
		"comment": &gql.Field{Type: gql.String},
	},
})

var productType = gql.NewObject(gql.ObjectConfig{
	Name: "Product",
	Fields: gql.Fields{
		"id":            &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"name":          &gql.Field{Type: gql.String},
		"description":   &gql.Field{Type: gql.String},
		"price":         &gql.Field{Type: gql.Float},
		"stock":         &gql.Field{Type: gql.Int},
		"inStock":       &gql.Field{Type: gql.Boolean},
		"category":      &gql.Field{Type: gql.String},
		"artisanName":   &gql.Field{Type: gql.String},
		"images":        &gql.Field{Type: gql.NewList(gql.String)},
		"averageRating": &gql.Field{Type: gql.Float},
		"numReviews":    &gql.Field{Type: gql.Int},
		"reviews":       &gql.Field{Type: gql.NewList(reviewType)},
	},
})

var productPageType = gql.NewObject(gql.ObjectConfig{
	Name: "ProductPage",
	Fields: gql.Fields{
		"items": &gql.Field{Type: gql.NewList(productType)},
		"total": &gql.Field{Type: gql.Int},
	},
})

// CatalogQuery is the read-only GraphQL root over the catalog. It goes
// through the same cached reads as the REST endpoints.
func CatalogQuery(catalog *services.CatalogService) *gql.Object {
	return gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"products": &gql.Field{
				Type: productPageType,
				Args: gql.FieldConfigArgument{
					"search":   &gql.ArgumentConfig{Type: gql.String, DefaultValue: ""},
					"category": &gql.ArgumentConfig{Type: gql.String, DefaultValue: ""},
					"page":     &gql.ArgumentConfig{Type: gql.Int, DefaultValue: 1},
					"perPage":  &gql.ArgumentConfig{Type: gql.Int, DefaultValue: orm.DefaultPerPage},
				},
				Resolve: func(p gql.ResolveParams) (any, error) {
					page, err := catalog.List(p.Context, repositories.ProductFilter{
						Search:   p.Args["search"].(string),
						Category: p.Args["category"].(string),
						Page:     orm.Page{Page: p.Args["page"].(int), PerPage: p.Args["perPage"].(int)},
					})
					if err != nil {
						return nil, publicError(err)
					}
					items := make([]map[string]any, 0, len(page.Products))
					for _, prod := range page.Products {
						items = append(items, productFields(prod))
					}
					return map[string]any{"items": items, "total": page.Total}, nil
				},
			},
			"product": &gql.Field{
				Type: productType,
				Args: gql.FieldConfigArgument{
					"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)},
				},
				Resolve: func(p gql.ResolveParams) (any, error) {
					id := p.Args["id"].(int)
					if id <= 0 {
						return nil, nil
					}
					prod, err := catalog.Show(p.Context, uint(id))
					if err != nil {
						return nil, publicError(err)
					}
					return productFields(prod), nil
				},
			},
		},
	})
}

// publicError keeps internal details out of the GraphQL errors array.
func publicError(err error) error {
	return errors.New(apperr.Message(err))
}

func productFields(p models.Product) map[string]any {
	reviews := make([]map[string]any, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		reviews = append(reviews, map[string]any{
			"id":      int(r.ID),
			"name":    r.Name,
			"rating":  r.Rating,
			"comment": r.Comment,
		})
	}
	price, _ := p.Price.Float64()
	return map[string]any{
		"id":            int(p.ID),
		"name":          p.Name,
		"description":   p.Description,
		"price":         price,
		"stock":         p.Stock,
		"inStock":       p.InStock(),
		"category":      p.Category,
		"artisanName":   p.ArtisanName,
		"images":        []string(p.Images),
		"averageRating": p.AverageRating,
		"numReviews":    p.NumReviews,
		"reviews":       reviews,
	}
}
