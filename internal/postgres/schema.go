package postgres

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/propsync/internal/logging"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS countries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS states (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		name TEXT NOT NULL,
		country_id TEXT REFERENCES countries(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS cities (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		name TEXT NOT NULL,
		state_id TEXT REFERENCES states(id),
		country_id TEXT REFERENCES countries(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		title TEXT,
		description TEXT,
		price DOUBLE PRECISION,
		currency TEXT,
		price_negotiable BOOLEAN NOT NULL DEFAULT false,
		property_type TEXT,
		listing_type TEXT,
		status TEXT,
		address_line1 TEXT,
		address_line2 TEXT,
		city TEXT,
		state TEXT,
		postal_code TEXT,
		country TEXT,
		country_code TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		country_id TEXT,
		state_id TEXT,
		city_id TEXT,
		area DOUBLE PRECISION,
		area_unit TEXT,
		bedrooms INTEGER,
		bathrooms INTEGER,
		balconies INTEGER,
		parking INTEGER,
		furnishing TEXT,
		condition TEXT,
		features JSONB,
		images JSONB,
		image_url TEXT,
		videos JSONB,
		video_url TEXT,
		agent_id TEXT,
		is_published BOOLEAN NOT NULL DEFAULT false,
		is_draft BOOLEAN NOT NULL DEFAULT true,
		is_featured BOOLEAN NOT NULL DEFAULT false,
		is_verified BOOLEAN NOT NULL DEFAULT false,
		views_count BIGINT NOT NULL DEFAULT 0,
		inquiries_count BIGINT NOT NULL DEFAULT 0,
		favorites_count BIGINT NOT NULL DEFAULT 0,
		shares_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_created ON properties(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city)`,
}

// Migrate creates the location and property tables when they are missing.
// Existing tables are left unchanged.
func (b *Backend) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := b.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, mapError("migrate", err))
		}
	}
	b.log.Info("schema migrated", logging.Fields{"statements": len(migrations)})
	return nil
}
