package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	orderverify "github.com/goliatone/go-order-verify"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// RegisterFunc binds one dialect's migration filesystem to the persistence
// layer.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

// Filesystems resolves the embedded migration tree into per-dialect
// filesystems. Passing a source overrides the embedded tree, which the
// integration tests use.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := orderverify.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	base, err := fs.Sub(root, "data/sql/migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations: data/sql/migrations not found: %w", err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []FilesystemSpec{
		{
			Dialect: DialectPostgres,
			Path:    "data/sql/migrations",
			FS:      base,
		},
		{
			Dialect: DialectSQLite,
			Path:    "data/sql/migrations/sqlite",
			FS:      sqliteFS,
		},
	}

	for _, fsys := range filesystems {
		matches, globErr := fs.Glob(fsys.FS, "*.up.sql")
		if globErr != nil {
			return nil, fmt.Errorf("migrations: glob %s %s: %w", fsys.Dialect, fsys.Path, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", fsys.Dialect, fsys.Path)
		}
	}

	return filesystems, nil
}

// RegisterDialect registers the migration filesystem for a single dialect.
func RegisterDialect(ctx context.Context, dialect string, registerFn RegisterFunc) error {
	if registerFn == nil {
		return fmt.Errorf("migrations: register function is required")
	}
	dialect = strings.TrimSpace(strings.ToLower(dialect))

	filesystems, err := Filesystems()
	if err != nil {
		return err
	}
	for _, fsys := range filesystems {
		if fsys.Dialect != dialect {
			continue
		}
		if err := registerFn(ctx, fsys.Dialect, "go-order-verify", fsys.FS); err != nil {
			return fmt.Errorf("migrations: register %s (%s): %w", fsys.Dialect, fsys.Path, err)
		}
		return nil
	}
	return fmt.Errorf("migrations: unsupported dialect %q", dialect)
}
