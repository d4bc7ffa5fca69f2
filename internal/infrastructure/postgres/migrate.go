package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/cockroachdb/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate aplica en orden los scripts de migrations/. Son idempotentes
// (CREATE ... IF NOT EXISTS), por lo que se ejecutan en cada arranque.
func Migrate(ctx context.Context, q Querier) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return errors.Wrap(err, "listar migraciones")
	}
	sort.Strings(names)
	for _, name := range names {
		script, err := migrationsFS.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "leer %s", name)
		}
		if _, err := q.Exec(ctx, string(script)); err != nil {
			return errors.Wrapf(err, "aplicar %s", name)
		}
	}
	return nil
}
