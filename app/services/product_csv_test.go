package services_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/app/services"
	"github.com/artisanmart/storefront/pkg/apperr"
)

func TestEncodeCSVQuotesAwkwardFields(t *testing.T) {
	p := models.Product{
		Name:        `Mug "Sunrise", large`,
		Description: "glazed\nby hand",
		Price:       decimal.RequireFromString("18.5"),
		Stock:       3,
		Category:    "Pottery",
		ArtisanName: "Asha",
		Images:      []string{"a.jpg", "b.jpg"},
	}
	p.ID = 7

	var buf bytes.Buffer
	require.NoError(t, services.EncodeCSV(&buf, []models.Product{p}))

	want := "_id,name,description,price,stock,category,artisanName,averageRating,numReviews,images\n" +
		"7,\"Mug \"\"Sunrise\"\", large\",\"glazed\nby hand\",18.50,3,Pottery,Asha,0,0,a.jpg|b.jpg\n"
	assert.Equal(t, want, buf.String())

	rows, rowErrs, err := services.DecodeCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(7), rows[0].ID)
	assert.Equal(t, p.Name, rows[0].Input.Name)
	assert.Equal(t, p.Description, rows[0].Input.Description)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, rows[0].Input.Images)
}

func TestDecodeCSVReportsBadRows(t *testing.T) {
	in := "\ufeff" + strings.Join(services.ProductColumns, ",") + "\n" +
		",Bowl,,12.00,4,Pottery,Asha,,,\n" +
		",,,12.00,4,Pottery,Asha,,,\n" +
		",Plate,,-1,4,Pottery,Asha,,,\n" +
		"x,Cup,,3,1,Pottery,Asha,,,\n" +
		",Short,row\n" +
		",Jug,,9.99,two,Pottery,Asha,,,\n"

	rows, rowErrs, err := services.DecodeCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bowl", rows[0].Input.Name)
	assert.Equal(t, 2, rows[0].Line)

	require.Len(t, rowErrs, 5)
	assert.Equal(t, services.RowError{Line: 3, Message: "name is required"}, rowErrs[0])
	assert.Equal(t, 4, rowErrs[1].Line)
	assert.Equal(t, "invalid _id", rowErrs[2].Message)
	assert.Equal(t, services.RowError{Line: 6, Message: "wrong number of fields"}, rowErrs[3])
	assert.Equal(t, 7, rowErrs[4].Line)
}

func TestDecodeCSVRejectsWrongHeader(t *testing.T) {
	_, _, err := services.DecodeCSV(strings.NewReader("id,name,description,price,stock,category,artisanName,averageRating,numReviews,images\n"))
	assert.Error(t, err)
	_, _, err = services.DecodeCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestRenderCatalogXLSX(t *testing.T) {
	p := models.Product{Name: "Rug", Price: decimal.RequireFromString("80"), Stock: 2, Category: "Textiles"}
	p.ID = 3
	at := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

	a, err := services.RenderCatalog([]models.Product{p}, models.ExportFormatXLSX, at)
	require.NoError(t, err)
	assert.Equal(t, "products-20261019-030000.xlsx", a.Name)
	assert.Equal(t, services.ContentTypeXLSX, a.ContentType)
	assert.Equal(t, 1, a.Rows)

	f, err := xlsx.OpenBinary(a.Data)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "_id", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "Rug", sheet.Rows[1].Cells[1].Value)

	_, err = services.RenderCatalog(nil, "pdf", at)
	assert.Error(t, err)
}

func TestImportUpsertsByID(t *testing.T) {
	db := newTestDB(t)
	existing := seedProduct(t, db, "Bowl", "12.00", 0)
	bus := &recordingBus{}
	svc := services.NewCatalogService(db, nil, time.Minute, bus)

	in := strings.Join(services.ProductColumns, ",") + "\n" +
		itoa(existing.ID) + ",Bowl (large),,14.00,6,Pottery,Asha,4.5,2,\n" +
		"9999,Vase,,30.00,1,Pottery,Asha,,,\n" +
		",Mat,,8.00,10,Textiles,Kiran,,,\n" +
		",,,8.00,10,Textiles,Kiran,,,\n"

	res, err := svc.Import(bg, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Created)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 5, res.Errors[0].Line)

	var p models.Product
	require.NoError(t, db.First(&p, existing.ID).Error)
	assert.Equal(t, "Bowl (large)", p.Name)
	assert.Equal(t, 6, p.Stock)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("14")))
	assert.Zero(t, p.NumReviews, "derived columns are not imported")

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	restocked := bus.Named(services.EventProductRestocked)
	require.Len(t, restocked, 1)
	assert.Equal(t, existing.ID, restocked[0].(services.StockChanged).ProductID)
}

func TestImportRejectsBrokenFile(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCatalogService(db, nil, time.Minute, nil)

	_, err := svc.Import(bg, strings.NewReader("name,price\n"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
