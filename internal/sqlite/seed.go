package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/propsync/internal/mapper"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// seedCountries fills the countries table from the built-in catalog when it
// is empty. Country ids are their alpha-2 codes so that country_id columns
// resolve without a lookup.
func seedCountries(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM records WHERE tbl = ?", types.CountriesTable).Scan(&count); err != nil {
		return fmt.Errorf("counting countries: %w", err)
	}
	if count > 0 {
		return nil
	}

	nowStr := time.Now().UTC().Format(timeFormat)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range mapper.Countries() {
		data, err := json.Marshal(map[string]any{"name": c.Name, "code": c.Code})
		if err != nil {
			return fmt.Errorf("encoding country %s: %w", c.Code, err)
		}
		_, err = tx.Exec(
			"INSERT INTO records (tbl, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			types.CountriesTable, c.Code, string(data), nowStr, nowStr,
		)
		if err != nil {
			return fmt.Errorf("seeding country %s: %w", c.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}
	return nil
}
