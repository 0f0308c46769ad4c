// Package postgres implements salon.Source over a Postgres database.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krisalay/salon-cache/salon"
)

// Querier is the subset of *pgxpool.Pool the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Querier = (*pgxpool.Pool)(nil)

type Source struct {
	db Querier
}

var _ salon.Source = (*Source)(nil)

func New(db Querier) *Source {
	return &Source{db: db}
}

// Connect opens a pool for dsn and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

const (
	servicesSQL = `SELECT id::text AS id, name, coalesce(description, '') AS description,
	price::float8 AS price, duration
FROM services
ORDER BY name`

	hoursSQL = `SELECT day, coalesce(open_time, '') AS open, coalesce(close_time, '') AS close, closed
FROM opening_hours`

	gallerySQL = `SELECT id::text AS id, name, url, created_at
FROM gallery_photos
ORDER BY created_at DESC`

	testimonialsSQL = `SELECT id::text AS id, name, text, rating, created_at
FROM testimonials
WHERE published
ORDER BY created_at DESC`

	settingsSQL = `SELECT key, value FROM settings`

	upsertSettingSQL = `INSERT INTO settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
)

func queryAll[T any](ctx context.Context, db Querier, table, sql string) ([]T, error) {
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	log.WithField("table", table).WithField("rows", len(out)).Debug("fetched")
	return out, nil
}

func (s *Source) FetchServices(ctx context.Context) ([]salon.Service, error) {
	return queryAll[salon.Service](ctx, s.db, "services", servicesSQL)
}

func (s *Source) FetchGalleryPhotos(ctx context.Context) ([]salon.Photo, error) {
	return queryAll[salon.Photo](ctx, s.db, "gallery_photos", gallerySQL)
}

func (s *Source) FetchTestimonials(ctx context.Context) ([]salon.Testimonial, error) {
	return queryAll[salon.Testimonial](ctx, s.db, "testimonials", testimonialsSQL)
}

// hoursRow is one row of opening_hours.
type hoursRow struct {
	Day    string `db:"day"`
	Open   string `db:"open"`
	Close  string `db:"close"`
	Closed bool   `db:"closed"`
}

// FetchHours assembles the weekly table. Days without a row are closed.
func (s *Source) FetchHours(ctx context.Context) (salon.OpeningHours, error) {
	rows, err := queryAll[hoursRow](ctx, s.db, "opening_hours", hoursSQL)
	if err != nil {
		return salon.OpeningHours{}, err
	}
	return assembleHours(rows)
}

func assembleHours(rows []hoursRow) (salon.OpeningHours, error) {
	var h salon.OpeningHours
	for _, d := range []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	} {
		h.SetDay(d, salon.DayHours{Closed: true})
	}

	for _, r := range rows {
		d, err := salon.ParseWeekday(r.Day)
		if err != nil {
			return salon.OpeningHours{}, fmt.Errorf("opening_hours: %w", err)
		}
		if r.Closed {
			h.SetDay(d, salon.DayHours{Closed: true})
			continue
		}
		h.SetDay(d, salon.DayHours{Open: r.Open, Close: r.Close})
	}
	return h, nil
}

type settingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func (s *Source) FetchSettings(ctx context.Context) (salon.Settings, error) {
	rows, err := queryAll[settingRow](ctx, s.db, "settings", settingsSQL)
	if err != nil {
		return nil, err
	}
	return settingsFromRows(rows), nil
}

func settingsFromRows(rows []settingRow) salon.Settings {
	out := make(salon.Settings, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out
}

// SaveSettings upserts every key of v. Keys missing from v are left alone.
// It satisfies writepolicy.Saver[salon.Settings] through writepolicy.SaverFunc.
func (s *Source) SaveSettings(ctx context.Context, v salon.Settings) error {
	for k, val := range v {
		if _, err := s.db.Exec(ctx, upsertSettingSQL, k, val); err != nil {
			return fmt.Errorf("upsert setting %q: %w", k, err)
		}
	}
	return nil
}
