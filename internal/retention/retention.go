// Package retention prunes old backups from the store.
package retention

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dbkeep/dbkeep/internal/catalog"
	"github.com/dbkeep/dbkeep/internal/storage"
)

// Manager handles retention policy enforcement
type Manager struct {
	catalog *catalog.Catalog
	store   storage.Storage
	keep    int
}

// New creates a retention manager keeping `keep` backups per tracked
// database.
func New(cat *catalog.Catalog, store storage.Storage, keep int) *Manager {
	return &Manager{
		catalog: cat,
		store:   store,
		keep:    keep,
	}
}

// Cleanup deletes the oldest backups, keeping the newest
// keep * trackedDatabaseCount objects of the merged listing. The cutoff
// applies to the combined list ordered by LastModified, not
// per-database: a database backed up far more often than another can
// push the other's objects past the cutoff. Returns the number of
// objects deleted.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	all, err := m.catalog.List(ctx, catalog.All)
	if err != nil {
		return 0, err
	}

	cutoff := m.keep * len(m.catalog.Databases())
	if cutoff >= len(all) {
		return 0, nil // Nothing to delete
	}

	eligible := all[:len(all)-cutoff]

	deleted := 0
	for _, file := range eligible {
		if err := m.store.Delete(ctx, file.Key); err != nil {
			// A listing can briefly show objects another run already
			// removed; treat those deletes as done.
			if storage.IsNotFound(err) {
				slog.Debug("backup already gone", "key", file.Key)
				deleted++
				continue
			}
			return deleted, fmt.Errorf("failed to delete backup %s: %w", file.Key, err)
		}
		deleted++
		slog.Info("deleted old backup",
			"key", file.Key,
			"age", file.LastModified,
		)
	}

	return deleted, nil
}
