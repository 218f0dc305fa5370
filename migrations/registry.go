// Package migrations exposes the embedded alert schema per SQL dialect and
// applies it through a go-persistence-bun client.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	alerts "github.com/goliatone/go-ado-alerts"
	"github.com/goliatone/go-ado-alerts/core"
	persistence "github.com/goliatone/go-persistence-bun"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	SourceLabel = "go-ado-alerts"

	treeRoot = "data/sql/migrations"
)

// FilesystemSpec is the migration directory for one dialect.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel string
	Targets     []string
	Filesystems []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithTargets limits registration to the given dialects. Blank and repeated
// names are ignored; an empty result keeps the current targets.
func WithTargets(targets ...string) Option {
	return func(r *Registration) {
		var picked []string
		for _, target := range targets {
			target = strings.ToLower(strings.TrimSpace(target))
			if target != "" && !slices.Contains(picked, target) {
				picked = append(picked, target)
			}
		}
		if len(picked) > 0 {
			r.Targets = picked
		}
	}
}

// WithSource swaps the embedded tree for root. An unusable root is ignored.
func WithSource(root fs.FS) Option {
	return func(r *Registration) {
		if root == nil {
			return
		}
		if filesystems, err := Filesystems(root); err == nil {
			r.Filesystems = filesystems
		}
	}
}

// DialectForDriver maps a configured database driver to its migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", core.DriverPostgres, core.DriverPGX:
		return DialectPostgres, nil
	case core.DriverSQLite, DialectSQLite:
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("migrations: no dialect for driver %q", driver)
}

// Filesystems splits a migration tree into its postgres part (the tree root)
// and its sqlite part (the sqlite subdirectory). Both must hold *.up.sql files.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := alerts.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}
	base, basePath, err := locateTree(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: sqlite tree: %w", err)
	}

	trees := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
		{Dialect: DialectSQLite, Path: path.Join(basePath, DialectSQLite), FS: sqliteFS},
	}
	for _, tree := range trees {
		ups, err := fs.Glob(tree.FS, "*.up.sql")
		switch {
		case err != nil:
			return nil, fmt.Errorf("migrations: scan %s: %w", tree.Path, err)
		case len(ups) == 0:
			return nil, fmt.Errorf("migrations: no %s up migrations under %q", tree.Dialect, tree.Path)
		}
	}
	return trees, nil
}

// Register hands every targeted dialect filesystem to registerFn.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: SourceLabel,
		Targets:     []string{DialectPostgres, DialectSQLite},
	}
	trees, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = trees
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, errors.New("migrations: register function is required")
	}

	for _, tree := range reg.Filesystems {
		if !slices.Contains(reg.Targets, tree.Dialect) {
			continue
		}
		if err := registerFn(ctx, tree.Dialect, reg.SourceLabel, tree.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s: %w", tree.Dialect, err)
		}
	}
	return reg, nil
}

// Apply registers the migrations for driver on client and runs them.
func Apply(ctx context.Context, client *persistence.Client, driver string) error {
	if client == nil {
		return errors.New("migrations: persistence client is required")
	}
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return err
	}
	register := func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}
	if _, err := Register(ctx, register, WithTargets(dialect)); err != nil {
		return err
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: migrate %s: %w", dialect, err)
	}
	return nil
}

// locateTree accepts either a filesystem containing treeRoot or one that
// already is the postgres directory.
func locateTree(root fs.FS) (fs.FS, string, error) {
	if info, err := fs.Stat(root, treeRoot); err == nil && info.IsDir() {
		sub, err := fs.Sub(root, treeRoot)
		if err != nil {
			return nil, "", fmt.Errorf("migrations: %s: %w", treeRoot, err)
		}
		return sub, treeRoot, nil
	}
	if sqlFiles, _ := fs.Glob(root, "*.sql"); len(sqlFiles) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", treeRoot)
}
