// Package migration applies and rolls back versioned schema changes and
// records them in the migrations table, batch by batch.
//
//	r := migration.New(db, []migration.Entry{
//	    {Name: "20260101000000_create_users_table", Migration: createUsers},
//	})
//	ran, err := r.Run(ctx)
package migration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/artisanmart/storefront/pkg/logger"
)

// Migration changes the schema in one direction or the other.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// Func adapts two functions to Migration.
type Func struct {
	UpFn   func(db *gorm.DB) error
	DownFn func(db *gorm.DB) error
}

func (f Func) Up(db *gorm.DB) error { return f.UpFn(db) }

func (f Func) Down(db *gorm.DB) error {
	if f.DownFn == nil {
		return nil
	}
	return f.DownFn(db)
}

// Entry names a migration. Names start with a sortable timestamp.
type Entry struct {
	Name string
	Migration
}

// Record is a row of the migrations table.
type Record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (Record) TableName() string { return "migrations" }

// Status reports whether a migration has run, and in which batch.
type Status struct {
	Name  string
	Ran   bool
	Batch int
}

var ErrDuplicateName = errors.New("migration: duplicate name")

type Runner struct {
	db      *gorm.DB
	entries []Entry
}

// New sorts entries by name. Duplicate names surface from Run.
func New(db *gorm.DB, entries []Entry) *Runner {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Runner{db: db, entries: sorted}
}

func (r *Runner) ensureTable(ctx context.Context) error {
	for i := 1; i < len(r.entries); i++ {
		if r.entries[i].Name == r.entries[i-1].Name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, r.entries[i].Name)
		}
	}
	if err := r.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) (map[string]Record, error) {
	var rows []Record
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: read applied: %w", err)
	}
	out := make(map[string]Record, len(rows))
	for _, row := range rows {
		out[row.Name] = row
	}
	return out, nil
}

// Run applies every pending migration as one new batch and returns the
// names applied.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	batch := 1
	for _, rec := range done {
		if rec.Batch >= batch {
			batch = rec.Batch + 1
		}
	}

	var ran []string
	db := r.db.WithContext(ctx)
	for _, e := range r.entries {
		if _, ok := done[e.Name]; ok {
			continue
		}
		logger.Info("migration: running", "name", e.Name)
		if err := e.Up(db); err != nil {
			return ran, fmt.Errorf("migration: %s up: %w", e.Name, err)
		}
		if err := db.Create(&Record{Name: e.Name, Batch: batch}).Error; err != nil {
			return ran, fmt.Errorf("migration: record %s: %w", e.Name, err)
		}
		ran = append(ran, e.Name)
	}
	if len(ran) > 0 {
		logger.Info("migration: done", "ran", len(ran), "batch", batch)
	}
	return ran, nil
}

// Rollback reverts the latest batch, newest first, and returns the names
// reverted.
func (r *Runner) Rollback(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)

	var last Record
	err := db.Order("batch desc").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("migration: latest batch: %w", err)
	}

	var rows []Record
	if err := db.Where("batch = ?", last.Batch).Order("name desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load batch %d: %w", last.Batch, err)
	}

	byName := make(map[string]Migration, len(r.entries))
	for _, e := range r.entries {
		byName[e.Name] = e.Migration
	}

	var reverted []string
	for _, row := range rows {
		m, ok := byName[row.Name]
		if !ok {
			return reverted, fmt.Errorf("migration: cannot roll back %s: not registered", row.Name)
		}
		logger.Info("migration: rolling back", "name", row.Name)
		if err := m.Down(db); err != nil {
			return reverted, fmt.Errorf("migration: %s down: %w", row.Name, err)
		}
		if err := db.Delete(&Record{}, row.ID).Error; err != nil {
			return reverted, fmt.Errorf("migration: forget %s: %w", row.Name, err)
		}
		reverted = append(reverted, row.Name)
	}
	return reverted, nil
}

// Status lists every known migration in order.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(r.entries))
	for _, e := range r.entries {
		rec, ok := done[e.Name]
		out = append(out, Status{Name: e.Name, Ran: ok, Batch: rec.Batch})
	}
	return out, nil
}
