package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/repositories"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/cache"
	"github.com/artisanmart/storefront/pkg/orm"
)

func TestAverageRating(t *testing.T) {
	assert.Equal(t, "0", services.AverageRating(nil).String())
	assert.Equal(t, "4.3", services.AverageRating([]int{5, 4, 4}).String())
	assert.Equal(t, "3.5", services.AverageRating([]int{3, 4}).String())
}

func TestCatalogListIsCachedAndInvalidated(t *testing.T) {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	store := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")
	svc := services.NewCatalogService(db, store, time.Minute, nil)

	seedProduct(t, db, "Blue pottery vase", "40.00", 3)
	seedProduct(t, db, "Jute mat", "8.00", 9)

	f := repositories.ProductFilter{Search: "pottery", Page: orm.Page{Page: 1, PerPage: 10}}
	page, err := svc.List(bg, f)
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.NotEmpty(t, mr.Keys())

	// Written behind the service's back: the cached page still answers.
	seedProduct(t, db, "Pottery bowl", "20.00", 1)
	page, err = svc.List(bg, f)
	require.NoError(t, err)
	assert.Len(t, page.Products, 1)

	_, err = svc.Create(bg, services.ProductInput{Name: "Pottery cup", Price: decimal.RequireFromString("5"), Category: "Pottery"})
	require.NoError(t, err)
	page, err = svc.List(bg, f)
	require.NoError(t, err)
	assert.Len(t, page.Products, 3)
	assert.EqualValues(t, 3, page.Total)
}

func TestCatalogUpdateFiresRestock(t *testing.T) {
	db := newTestDB(t)
	bus := &recordingBus{}
	svc := services.NewCatalogService(db, nil, time.Minute, bus)
	p := seedProduct(t, db, "Scarf", "35.00", 0)

	in := services.ProductInput{Name: "Scarf", Price: decimal.RequireFromString("35"), Stock: 4, Category: "Textiles"}
	updated, err := svc.Update(bg, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Stock)
	assert.Len(t, bus.Named(services.EventStockChanged), 1)
	assert.Len(t, bus.Named(services.EventProductRestocked), 1)

	in.Stock = 2
	_, err = svc.Update(bg, p.ID, in)
	require.NoError(t, err)
	assert.Len(t, bus.Named(services.EventStockChanged), 2)
	assert.Len(t, bus.Named(services.EventProductRestocked), 1)

	_, err = svc.Update(bg, 999, in)
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	in.Price = decimal.RequireFromString("-1")
	_, err = svc.Update(bg, p.ID, in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestReviewsOnePerUser(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCatalogService(db, nil, time.Minute, nil)
	p := seedProduct(t, db, "Lamp", "60.00", 3)
	a := seedUser(t, db, "a@example.com", models.RoleUser)
	b := seedUser(t, db, "b@example.com", models.RoleUser)

	_, err := svc.AddReview(bg, p.ID, a, services.ReviewInput{Rating: 5, Comment: "lovely"})
	require.NoError(t, err)
	_, err = svc.AddReview(bg, p.ID, b, services.ReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = svc.AddReview(bg, p.ID, a, services.ReviewInput{Rating: 1})
	assert.ErrorIs(t, err, services.ErrAlreadyReviewed)

	_, err = svc.AddReview(bg, 999, a, services.ReviewInput{Rating: 3})
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	got, err := svc.Show(bg, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.AverageRating)
	assert.Equal(t, 2, got.NumReviews)
	assert.Len(t, got.Reviews, 2)
}

func TestCatalogDelete(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCatalogService(db, nil, time.Minute, nil)
	p := seedProduct(t, db, "Lamp", "60.00", 3)

	require.NoError(t, svc.Delete(bg, p.ID))
	_, err := svc.Show(bg, p.ID)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.ErrorIs(t, svc.Delete(bg, p.ID), services.ErrProductNotFound)
}

func TestWishlist(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewWishlistService(db)
	p := seedProduct(t, db, "Lamp", "60.00", 3)

	item, err := svc.Add(bg, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", item.Product.Name)

	_, err = svc.Add(bg, 1, p.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyWishlisted)
	_, err = svc.Add(bg, 1, 999)
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	items, err := svc.List(bg, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, p.ID, items[0].Product.ID)

	require.NoError(t, svc.Remove(bg, 1, p.ID))
	assert.ErrorIs(t, svc.Remove(bg, 1, p.ID), services.ErrNotWishlisted)
}

func TestContactSubmitSurvivesForwardFailure(t *testing.T) {
	db := newTestDB(t)
	var forwarded []models.ContactMessage
	svc := services.NewContactService(db, func(_ context.Context, m models.ContactMessage) error {
		forwarded = append(forwarded, m)
		return errors.New("queue down")
	})

	m, err := svc.Submit(bg, nil, services.ContactInput{Name: "Ravi", Email: "ravi@example.com", Message: "Do you ship abroad?"})
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	require.Len(t, forwarded, 1)

	list, total, err := svc.List(bg, orm.Page{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Do you ship abroad?", list[0].Message)
}
