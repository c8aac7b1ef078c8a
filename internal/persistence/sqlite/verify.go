// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrCorrupt is returned by Check when SQLite reports structural problems.
var ErrCorrupt = errors.New("sqlite: integrity check failed")

// Check runs PRAGMA quick_check (or integrity_check when full is set) and
// returns ErrCorrupt with the diagnostic rows when the result is not "ok".
func Check(ctx context.Context, db *sql.DB, full bool) error {
	pragma := "PRAGMA quick_check;"
	if full {
		pragma = "PRAGMA integrity_check;"
	}

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return fmt.Errorf("integrity pragma failed: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return fmt.Errorf("scan integrity result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity rows: %w", err)
	}

	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: no results returned", ErrCorrupt)
	}
	return fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(results, "; "))
}
