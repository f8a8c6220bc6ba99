// Package orm holds small gorm helpers shared by the repositories.
package orm

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page    int
	PerPage int
}

// Normalize clamps the page into a usable range.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.PerPage }

// Paginate counts q and loads one page into dest. q must already carry its
// Model and filters; ordering and preloads are applied after counting.
func Paginate(ctx context.Context, q *gorm.DB, p Page, order string, dest any, preloads ...string) (int64, error) {
	p = p.Normalize()
	var total int64
	if err := q.WithContext(ctx).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	find := q.WithContext(ctx).Offset(p.Offset()).Limit(p.PerPage)
	if order != "" {
		find = find.Order(order)
	}
	for _, rel := range preloads {
		find = find.Preload(rel)
	}
	return total, find.Find(dest).Error
}

// Search adds a case-insensitive LIKE over cols for term. An empty term
// leaves q unchanged.
func Search(term string, cols ...string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		term = strings.TrimSpace(term)
		if term == "" || len(cols) == 0 {
			return q
		}
		like := "%" + strings.ToLower(escapeLike(term)) + "%"
		clauses := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, c := range cols {
			clauses[i] = "LOWER(" + c + ") LIKE ? ESCAPE '\\'"
			args[i] = like
		}
		return q.Where(strings.Join(clauses, " OR "), args...)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// IsDuplicate reports whether err is a unique-constraint violation. Drivers
// without error translation are matched on their message.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
