package controllers

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/ctx"
	"github.com/artisanmart/storefront/pkg/response"
)

const maxImportBytes = 10 << 20

type ProductController struct {
	catalog *services.CatalogService
	restock *services.RestockService
	auth    *services.AuthService
}

func NewProductController(catalog *services.CatalogService, restock *services.RestockService, auth *services.AuthService) *ProductController {
	return &ProductController{catalog: catalog, restock: restock, auth: auth}
}

func (pc *ProductController) Index(c *ctx.Context) {
	p := pageOf(c)
	page, err := pc.catalog.List(c.Context(), repositories.ProductFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Page:     p,
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Products fetched", response.Payload{"products": page.Products, "pagination": paginated(p, page.Total)})
}

func (pc *ProductController) Show(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	p, err := pc.catalog.Show(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Product fetched", response.Payload{"product": p})
}

func (pc *ProductController) Review(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	var in services.ReviewInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := pc.auth.Me(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	review, err := pc.catalog.AddReview(c.Context(), id, user, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Review added", response.Payload{"review": review})
}

// Notify subscribes an email to the product's restock notification.
func (pc *ProductController) Notify(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	var in services.SubscribeInput
	if !c.BindJSON(&in) {
		return
	}
	var userID *uint
	if uid := c.UserID(); uid != 0 {
		userID = &uid
	}
	sub, err := pc.restock.Subscribe(c.Context(), id, strings.ToLower(strings.TrimSpace(in.Email)), userID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("We will email you when it is back in stock", response.Payload{"subscription": sub})
}

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.catalog.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("Product created", response.Payload{"product": p})
}

func (pc *ProductController) Update(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.catalog.Update(c.Context(), id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Product updated", response.Payload{"product": p})
}

func (pc *ProductController) Destroy(c *ctx.Context) {
	id, ok := c.ParamID("id")
	if !ok {
		return
	}
	if err := pc.catalog.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.OK("Product deleted", nil)
}

func (pc *ProductController) Export(c *ctx.Context) {
	a, err := pc.catalog.Export(c.Context(), c.DefaultQuery("format", models.ExportFormatCSV))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Attachment(a.Name, a.ContentType, a.Data)
}

// Import accepts the CSV as a multipart "file" field or as the raw body.
func (pc *ProductController) Import(c *ctx.Context) {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxImportBytes)

	var src io.Reader = c.R.Body
	if mt, _, _ := mime.ParseMediaType(c.Header("Content-Type")); mt == "multipart/form-data" {
		file, _, err := c.R.FormFile("file")
		if err != nil {
			c.ValidationError(map[string]string{"file": "The file field is required."})
			return
		}
		defer file.Close()
		src = file
	}

	res, err := pc.catalog.Import(c.Context(), src)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK("Catalog imported", response.Payload{"created": res.Created, "updated": res.Updated, "errors": res.Errors})
}
