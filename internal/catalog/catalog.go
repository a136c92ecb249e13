// Package catalog lists remote backups in a stable order and resolves
// user-supplied index tokens to concrete objects.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dbkeep/dbkeep/internal/naming"
	"github.com/dbkeep/dbkeep/internal/storage"
)

// All selects every tracked database in a single merged listing.
const All = "all"

var (
	// ErrMalformedToken indicates a token without a database segment.
	ErrMalformedToken = errors.New("malformed backup token, expected index:database")

	// ErrBackupNotFound indicates an index outside the catalog bounds.
	ErrBackupNotFound = errors.New("backup not found")
)

// Catalog reads the remote object listing for one environment.
type Catalog struct {
	store       storage.Storage
	environment string
	databases   []string
}

// New creates a catalog over the given store, scoped to environment and
// the tracked databases.
func New(store storage.Storage, environment string, databases []string) *Catalog {
	return &Catalog{
		store:       store,
		environment: environment,
		databases:   databases,
	}
}

// Databases returns the tracked database names.
func (c *Catalog) Databases() []string {
	return c.databases
}

// List returns the backups for one database, or for All the merged
// listing across every tracked database. Always sorted ascending by
// LastModified (the store's metadata, never the key), ties broken by
// key order, so index positions are stable between calls.
func (c *Catalog) List(ctx context.Context, database string) ([]storage.BackupFile, error) {
	if database == All {
		var merged []storage.BackupFile
		for _, db := range c.databases {
			files, err := c.listOne(ctx, db)
			if err != nil {
				return nil, err
			}
			merged = append(merged, files...)
		}
		sortByLastModified(merged)
		return merged, nil
	}

	files, err := c.listOne(ctx, database)
	if err != nil {
		return nil, err
	}
	sortByLastModified(files)
	return files, nil
}

func (c *Catalog) listOne(ctx context.Context, database string) ([]storage.BackupFile, error) {
	// Trailing separator keeps "a" from matching "ab" keys
	prefix := c.environment + "." + database + "/"
	files, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups for %s: %w", database, err)
	}
	return files, nil
}

// sortByLastModified orders files ascending by LastModified with key
// order as the tie-break.
func sortByLastModified(files []storage.BackupFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].LastModified.Equal(files[j].LastModified) {
			return files[i].Key < files[j].Key
		}
		return files[i].LastModified.Before(files[j].LastModified)
	})
}

// Print writes a human-readable listing: a count line followed by one
// "{index}:{database} {filename}" line per object. The printed indices
// are resolver tokens, valid only against a single-database listing;
// an "all" listing interleaves databases, shifting positions.
func (c *Catalog) Print(w io.Writer, files []storage.BackupFile) {
	fmt.Fprintf(w, "%d backups found\n", len(files))
	for i, f := range files {
		fmt.Fprintf(w, "%d:%s %s\n", i, naming.DatabaseFromKey(f.Key), naming.LocalFilename(f.Key))
	}
}

// Resolve maps an "index:database" token to a concrete backup object by
// re-listing that database. Returns the object and its database name.
func (c *Catalog) Resolve(ctx context.Context, token string) (storage.BackupFile, string, error) {
	idx, database, err := parseToken(token)
	if err != nil {
		return storage.BackupFile{}, "", err
	}

	files, err := c.List(ctx, database)
	if err != nil {
		return storage.BackupFile{}, "", err
	}

	if idx < 0 || idx >= len(files) {
		return storage.BackupFile{}, "", fmt.Errorf("%w: index %d for database %s (%d backups)", ErrBackupNotFound, idx, database, len(files))
	}

	return files[idx], database, nil
}

// MostRecentToken returns the token addressing the newest backup of
// database. It re-lists, so a backup completing between this call and a
// later Resolve shifts the index by one; acceptable for a single
// operator, callers needing stronger guarantees should hold one listing.
func (c *Catalog) MostRecentToken(ctx context.Context, database string) (string, error) {
	files, err := c.List(ctx, database)
	if err != nil {
		return "", err
	}

	if len(files) == 0 {
		return "", fmt.Errorf("%w: no backups for database %s", ErrBackupNotFound, database)
	}

	return fmt.Sprintf("%d:%s", len(files)-1, database), nil
}

func parseToken(token string) (int, string, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}

	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}

	return idx, parts[1], nil
}
