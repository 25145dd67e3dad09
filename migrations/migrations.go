// Package migrations embeds the SQL schema of the payroll service.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed payroll/*.sql
var files embed.FS

// Up returns the contents of every *.up.sql file in version order.
func Up() ([]string, error) {
	names, err := fs.Glob(files, "payroll/*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		scripts = append(scripts, string(body))
	}
	return scripts, nil
}

// Apply runs every up migration against db. The scripts are idempotent
// (IF NOT EXISTS), so Apply is safe on an already migrated database.
func Apply(ctx context.Context, db *sqlx.DB) error {
	scripts, err := Up()
	if err != nil {
		return err
	}
	for i, script := range scripts {
		if strings.TrimSpace(script) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, script); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
