// Package migrations embeds the schema files for each supported database.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dialect selects a schema directory.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Files returns the migration file names for the dialect in apply order.
func Files(d Dialect) ([]string, error) {
	entries, err := fs.ReadDir(FS, string(d))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, string(d)+"/"+e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the contents of one migration file.
func Read(name string) (string, error) {
	b, err := FS.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
