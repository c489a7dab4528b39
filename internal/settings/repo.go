// Package settings stores the bar-wide preferences edited from the admin
// panel as key/value rows.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"barbook/pkg/models"
)

const (
	keyBarName         = "bar_name"
	keyDefaultLayoutID = "default_layout_id"
	keySearchThreshold = "search_threshold"
)

type Repo struct {
	DB *sql.DB
	// Defaults fill keys that were never saved.
	Defaults models.Settings
}

func NewRepo(db *sql.DB, defaults models.Settings) *Repo {
	return &Repo{DB: db, Defaults: defaults}
}

func (r *Repo) Get(ctx context.Context) (models.Settings, error) {
	s := r.Defaults

	rows, err := r.DB.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return s, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return s, fmt.Errorf("scan setting: %w", err)
		}
		switch k {
		case keyBarName:
			s.BarName = v
		case keyDefaultLayoutID:
			s.DefaultLayoutID = v
		case keySearchThreshold:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				s.SearchThreshold = f
			}
		}
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("rows err: %w", err)
	}
	return s, nil
}

// SearchThreshold falls back to the default when the stored value can't be
// read.
func (r *Repo) SearchThreshold(ctx context.Context) float64 {
	s, err := r.Get(ctx)
	if err != nil {
		return r.Defaults.SearchThreshold
	}
	return s.SearchThreshold
}

// Patch holds the settings to change; nil fields are left alone.
type Patch struct {
	BarName         *string  `json:"bar_name"`
	DefaultLayoutID *string  `json:"default_layout_id"`
	SearchThreshold *float64 `json:"search_threshold"`
}

func (r *Repo) Update(ctx context.Context, p Patch) (s models.Settings, err error) {
	kv := map[string]string{}
	if p.BarName != nil {
		kv[keyBarName] = *p.BarName
	}
	if p.DefaultLayoutID != nil {
		kv[keyDefaultLayoutID] = *p.DefaultLayoutID
	}
	if p.SearchThreshold != nil {
		kv[keySearchThreshold] = strconv.FormatFloat(*p.SearchThreshold, 'f', -1, 64)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, fmt.Errorf("begin update settings: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for k, v := range kv {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, k, v, now); err != nil {
			return s, fmt.Errorf("upsert setting %s: %w", k, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return s, fmt.Errorf("commit settings: %w", err)
	}
	return r.Get(ctx)
}
