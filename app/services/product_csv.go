package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/artisanmart/storefront/app/models"
	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/orm"
)

// ProductColumns is the fixed column order of catalog files.
var ProductColumns = []string{
	"_id", "name", "description", "price", "stock",
	"category", "artisanName", "averageRating", "numReviews", "images",
}

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Artifact is a rendered catalog file.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

func productRecord(p models.Product) []string {
	return []string{
		strconv.FormatUint(uint64(p.ID), 10),
		p.Name,
		p.Description,
		p.Price.StringFixed(2),
		strconv.Itoa(p.Stock),
		p.Category,
		p.ArtisanName,
		strconv.FormatFloat(p.AverageRating, 'f', -1, 64),
		strconv.Itoa(p.NumReviews),
		strings.Join(p.Images, "|"),
	}
}

// EncodeCSV writes products with a header row. Fields holding commas,
// quotes or line breaks are quoted and inner quotes doubled.
func EncodeCSV(w io.Writer, products []models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProductColumns); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write(productRecord(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeXLSX writes products to a single "Products" sheet.
func EncodeXLSX(w io.Writer, products []models.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	for _, h := range ProductColumns {
		header.AddCell().SetString(h)
	}
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		price, _ := p.Price.Round(2).Float64()
		row.AddCell().SetFloat(price)
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.ArtisanName)
		row.AddCell().SetFloat(p.AverageRating)
		row.AddCell().SetInt(p.NumReviews)
		row.AddCell().SetString(strings.Join(p.Images, "|"))
	}
	return file.Write(w)
}

// RenderCatalog renders products in format ("csv" or "xlsx").
func RenderCatalog(products []models.Product, format string, at time.Time) (Artifact, error) {
	var buf bytes.Buffer
	a := Artifact{Rows: len(products)}
	stamp := at.UTC().Format("20060102-150405")
	switch format {
	case models.ExportFormatCSV, "":
		if err := EncodeCSV(&buf, products); err != nil {
			return Artifact{}, fmt.Errorf("render csv: %w", err)
		}
		a.Name, a.ContentType = "products-"+stamp+".csv", ContentTypeCSV
	case models.ExportFormatXLSX:
		if err := EncodeXLSX(&buf, products); err != nil {
			return Artifact{}, fmt.Errorf("render xlsx: %w", err)
		}
		a.Name, a.ContentType = "products-"+stamp+".xlsx", ContentTypeXLSX
	default:
		return Artifact{}, fmt.Errorf("unsupported export format %q", format)
	}
	a.Data = buf.Bytes()
	return a, nil
}

// ProductRow is one decoded import line.
type ProductRow struct {
	Line  int
	ID    uint
	Input ProductInput
}

// RowError reports a rejected import line.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

var errBadHeader = errors.New("header must be " + strings.Join(ProductColumns, ","))

// DecodeCSV parses a catalog file. Malformed rows are reported and skipped;
// a wrong header or broken CSV fails the whole file.
func DecodeCSV(r io.Reader) ([]ProductRow, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ProductColumns)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errBadHeader
		}
		return nil, nil, err
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, h := range ProductColumns {
		if strings.TrimSpace(header[i]) != h {
			return nil, nil, errBadHeader
		}
	}

	var (
		rows    []ProductRow
		rowErrs []RowError
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
				rowErrs = append(rowErrs, RowError{Line: perr.StartLine, Message: "wrong number of fields"})
				continue
			}
			return nil, nil, err
		}
		line, _ := cr.FieldPos(0)
		row, msg := decodeRecord(rec)
		if msg != "" {
			rowErrs = append(rowErrs, RowError{Line: line, Message: msg})
			continue
		}
		row.Line = line
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

func decodeRecord(rec []string) (ProductRow, string) {
	var row ProductRow
	if id := strings.TrimSpace(rec[0]); id != "" {
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return row, "invalid _id"
		}
		row.ID = uint(n)
	}
	name := strings.TrimSpace(rec[1])
	if name == "" {
		return row, "name is required"
	}
	price, err := decimal.NewFromString(strings.TrimSpace(rec[3]))
	if err != nil || price.IsNegative() {
		return row, "price must be a non-negative number"
	}
	stock, err := strconv.Atoi(strings.TrimSpace(rec[4]))
	if err != nil || stock < 0 {
		return row, "stock must be a non-negative integer"
	}
	row.Input = ProductInput{
		Name:        name,
		Description: rec[2],
		Price:       price,
		Stock:       stock,
		Category:    strings.TrimSpace(rec[5]),
		ArtisanName: strings.TrimSpace(rec[6]),
		Images:      models.SplitList(rec[9]),
	}
	return row, ""
}

// ImportResult summarises a catalog import.
type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors"`
}

// Export renders the whole catalog.
func (s *CatalogService) Export(ctx context.Context, format string) (Artifact, error) {
	products, err := s.products.All(ctx)
	if err != nil {
		return Artifact{}, apperr.Internal("catalog.export", err)
	}
	a, err := RenderCatalog(products, format, time.Now())
	if err != nil {
		return Artifact{}, apperr.Validation("catalog.export", err.Error(), err)
	}
	return a, nil
}

// Import upserts products by _id. Rows without an _id, or with one that is
// not in the catalog, create new products. Derived rating columns are
// ignored.
func (s *CatalogService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	const op = "catalog.import"

	rows, rowErrs, err := DecodeCSV(r)
	if err != nil {
		return ImportResult{}, apperr.Validation(op, "Invalid CSV: "+err.Error(), err)
	}

	res := ImportResult{Errors: rowErrs}
	var changes []StockChanged
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		for _, row := range rows {
			if row.ID != 0 {
				p, err := products.Find(ctx, row.ID)
				if err == nil {
					before := p.Stock
					apply(&p, row.Input)
					if err := products.Save(ctx, &p); err != nil {
						return err
					}
					res.Updated++
					changes = append(changes, StockChanged{ProductID: p.ID, Name: p.Name, Before: before, After: p.Stock})
					continue
				}
				if !orm.IsNotFound(err) {
					return err
				}
			}
			p := models.Product{}
			apply(&p, row.Input)
			if err := products.Create(ctx, &p); err != nil {
				return err
			}
			res.Created++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, apperr.Internal(op, err)
	}
	if res.Errors == nil {
		res.Errors = []RowError{}
	}

	s.invalidate(ctx)
	for _, c := range changes {
		fireStock(s.events, c)
	}
	return res, nil
}
