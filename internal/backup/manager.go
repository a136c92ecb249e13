// Package backup orchestrates the backup lifecycle: dumping tracked
// databases to object storage, listing and downloading artifacts,
// restoring and cloning them, and enforcing retention.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dbkeep/dbkeep/internal/catalog"
	"github.com/dbkeep/dbkeep/internal/config"
	"github.com/dbkeep/dbkeep/internal/engine"
	"github.com/dbkeep/dbkeep/internal/naming"
	"github.com/dbkeep/dbkeep/internal/notification"
	"github.com/dbkeep/dbkeep/internal/retention"
	"github.com/dbkeep/dbkeep/internal/storage"
	"github.com/dbkeep/dbkeep/internal/transfer"
)

// storeAttempts bounds upload retries for a single artifact.
const storeAttempts = 3

// Manager composes the engine, store, catalog, downloader and retention
// into the user-facing operations.
type Manager struct {
	engine     engine.Engine
	store      storage.Storage
	catalog    *catalog.Catalog
	downloader *transfer.Downloader
	retention  *retention.Manager
	notifyMgr  *notification.Manager
	config     *config.Config

	// now and retryDelay are swappable for tests
	now        func() time.Time
	retryDelay time.Duration
}

// NewManager creates a backup manager wired to one engine and one
// storage pool.
func NewManager(eng engine.Engine, store storage.Storage, notifyMgr *notification.Manager, cfg *config.Config) *Manager {
	cat := catalog.New(store, cfg.Environment, cfg.Databases)

	return &Manager{
		engine:     eng,
		store:      store,
		catalog:    cat,
		downloader: transfer.NewDownloader(store, cfg.DownloadDir),
		retention:  retention.New(cat, store, cfg.Keep),
		notifyMgr:  notifyMgr,
		config:     cfg,
		retryDelay: time.Second,
	}
}

// BackupAll dumps every tracked database and uploads the artifacts.
// All databases in one run share a single timestamp, so a run is
// recognizable in listings. A failing database does not stop the run;
// the combined error is returned after all databases were attempted.
func (m *Manager) BackupAll(ctx context.Context) error {
	timestamp := naming.Timestamp(m.clock()())

	var errs []error
	for _, database := range m.config.Databases {
		if err := m.backupOne(ctx, database, timestamp); err != nil {
			slog.Error("backup failed",
				"database", database,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("backup %s: %w", database, err))
		}
	}

	return errors.Join(errs...)
}

// backupOne dumps a single database and uploads it under the shared
// run timestamp.
func (m *Manager) backupOne(ctx context.Context, database, timestamp string) error {
	start := m.clock()()
	key := naming.ArtifactKey(m.config.Environment, database, timestamp)

	slog.Info("starting backup",
		"database", database,
		"key", key,
	)

	size, err := m.dumpAndStore(ctx, database, key, timestamp)
	if err != nil {
		m.notify(ctx, notification.Event{
			Type:        notification.EventBackupFailed,
			Environment: m.config.Environment,
			Database:    database,
			BackupKey:   key,
			Error:       err,
			Timestamp:   time.Now(),
		})
		return err
	}

	duration := time.Since(start)
	slog.Info("backup completed",
		"database", database,
		"key", key,
		"size", size,
		"duration", duration,
	)

	m.notify(ctx, notification.Event{
		Type:        notification.EventBackupCompleted,
		Environment: m.config.Environment,
		Database:    database,
		BackupKey:   key,
		Size:        size,
		Duration:    duration,
		Timestamp:   time.Now(),
	})

	return nil
}

// dumpAndStore spools the dump to a temp file, then uploads it. The
// spool file makes the upload retryable; the dump subprocess runs
// exactly once either way.
func (m *Manager) dumpAndStore(ctx context.Context, database, key, timestamp string) (int64, error) {
	reader, err := m.engine.Dump(ctx, database)
	if err != nil {
		return 0, fmt.Errorf("dump failed: %w", err)
	}

	tmp, err := os.CreateTemp(m.config.TempDir, database+"."+timestamp+".*"+naming.Suffix)
	if err != nil {
		reader.Close()
		return 0, fmt.Errorf("failed to create spool file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, reader)
	if cerr := reader.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("dump failed: %w", err)
	}

	if err := m.storeWithRetry(ctx, key, tmp); err != nil {
		return 0, err
	}

	return size, nil
}

// storeWithRetry uploads the spool file, rewinding and retrying on
// transient failures.
func (m *Manager) storeWithRetry(ctx context.Context, key string, tmp *os.File) error {
	var lastErr error
	for attempt := 1; attempt <= storeAttempts; attempt++ {
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind spool file: %w", err)
		}

		lastErr = m.store.Store(ctx, key, tmp)
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil || attempt == storeAttempts {
			break
		}

		slog.Warn("upload failed, retrying",
			"key", key,
			"attempt", attempt,
			"error", lastErr,
		)

		select {
		case <-time.After(time.Duration(attempt) * m.retryDelay):
		case <-ctx.Done():
			return fmt.Errorf("failed to store backup: %w", ctx.Err())
		}
	}

	return fmt.Errorf("failed to store backup after %d attempts: %w", storeAttempts, lastErr)
}

// List prints the backups of one database, or of every tracked database
// when database is "all", oldest first.
func (m *Manager) List(ctx context.Context, database string, w io.Writer) error {
	if database != catalog.All && !m.config.IsTracked(database) {
		return fmt.Errorf("database %q is not tracked", database)
	}

	files, err := m.catalog.List(ctx, database)
	if err != nil {
		return err
	}

	m.catalog.Print(w, files)
	return nil
}

// Download fetches the backup addressed by an "index:database" token
// into the download directory. Returns the database name and the local
// file path.
func (m *Manager) Download(ctx context.Context, token string) (string, string, error) {
	file, database, err := m.catalog.Resolve(ctx, token)
	if err != nil {
		return "", "", err
	}

	path, err := m.downloader.Download(ctx, file)
	if err != nil {
		return "", "", err
	}

	return database, path, nil
}

// Restore downloads the backup addressed by token and loads it back
// into the database it was taken from. Destructive for that database.
func (m *Manager) Restore(ctx context.Context, token string) error {
	start := m.clock()()

	file, database, err := m.catalog.Resolve(ctx, token)
	if err != nil {
		return err
	}

	path, err := m.downloader.Download(ctx, file)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open downloaded backup: %w", err)
	}
	defer f.Close()

	slog.Info("starting restore",
		"database", database,
		"key", file.Key,
	)

	if err := m.engine.Restore(ctx, database, f); err != nil {
		m.notify(ctx, notification.Event{
			Type:        notification.EventRestoreFailed,
			Environment: m.config.Environment,
			Database:    database,
			BackupKey:   file.Key,
			Error:       err,
			Timestamp:   time.Now(),
		})
		return fmt.Errorf("restore failed: %w", err)
	}

	duration := time.Since(start)
	slog.Info("restore completed",
		"database", database,
		"key", file.Key,
		"duration", duration,
	)

	m.notify(ctx, notification.Event{
		Type:        notification.EventRestoreCompleted,
		Environment: m.config.Environment,
		Database:    database,
		BackupKey:   file.Key,
		Duration:    duration,
		Timestamp:   time.Now(),
	})

	return nil
}

// Clone loads the most recent backup of database into its staging
// counterpart, derived by replacing "_production" in the artifact name
// with "_staging". The staging database is dropped and recreated.
func (m *Manager) Clone(ctx context.Context, database string) error {
	start := m.clock()()

	if !m.config.IsTracked(database) {
		return fmt.Errorf("database %q is not tracked", database)
	}

	token, err := m.catalog.MostRecentToken(ctx, database)
	if err != nil {
		return err
	}

	file, _, err := m.catalog.Resolve(ctx, token)
	if err != nil {
		return err
	}

	path, err := m.downloader.Download(ctx, file)
	if err != nil {
		return err
	}

	target := naming.StagingNameFromFilename(naming.LocalFilename(file.Key))

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open downloaded backup: %w", err)
	}
	defer f.Close()

	slog.Info("starting clone",
		"database", database,
		"target", target,
		"key", file.Key,
	)

	if err := m.engine.Clone(ctx, target, f); err != nil {
		m.notify(ctx, notification.Event{
			Type:        notification.EventCloneFailed,
			Environment: m.config.Environment,
			Database:    target,
			BackupKey:   file.Key,
			Error:       err,
			Timestamp:   time.Now(),
		})
		return fmt.Errorf("clone failed: %w", err)
	}

	duration := time.Since(start)
	slog.Info("clone completed",
		"database", database,
		"target", target,
		"key", file.Key,
		"duration", duration,
	)

	m.notify(ctx, notification.Event{
		Type:        notification.EventCloneCompleted,
		Environment: m.config.Environment,
		Database:    target,
		BackupKey:   file.Key,
		Duration:    duration,
		Timestamp:   time.Now(),
	})

	return nil
}

// Cleanup applies the retention policy across all tracked databases and
// returns the number of deleted backups.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	return m.retention.Cleanup(ctx)
}

// Delete removes the backup addressed by token from the store.
func (m *Manager) Delete(ctx context.Context, token string) error {
	file, database, err := m.catalog.Resolve(ctx, token)
	if err != nil {
		return err
	}

	if err := m.store.Delete(ctx, file.Key); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	slog.Info("backup deleted",
		"database", database,
		"key", file.Key,
	)
	return nil
}

// notify dispatches an event to every configured provider, filtered by
// the notify-on event list. A detached timeout keeps a canceled
// operation context from suppressing its own failure notification.
func (m *Manager) notify(_ context.Context, event notification.Event) {
	if m.notifyMgr == nil || m.notifyMgr.NotifierCount() == 0 {
		return
	}
	if !m.eventEnabled(event.Type) {
		return
	}

	providers := make([]string, 0, len(m.config.NotifyConfigs))
	for name := range m.config.NotifyConfigs {
		providers = append(providers, name)
	}

	notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	m.notifyMgr.Notify(notifyCtx, event, providers)
}

// eventEnabled reports whether the event type passes the notify-on
// filter. An empty filter enables everything.
func (m *Manager) eventEnabled(t notification.EventType) bool {
	if len(m.config.NotifyOn) == 0 {
		return true
	}
	for _, name := range m.config.NotifyOn {
		if notification.EventType(name) == t {
			return true
		}
	}
	return false
}

func (m *Manager) clock() func() time.Time {
	if m.now != nil {
		return m.now
	}
	return time.Now
}
