package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/dbkeep/dbkeep/internal/engine"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNew(t *testing.T) {
	e, err := New(engine.Options{"user": "postgres"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", e.Name())
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(engine.Options{"user": "postgres"})
	require.NoError(t, err)

	pg := e.(*PostgresEngine)
	assert.Equal(t, "127.0.0.1", pg.host)
	assert.Equal(t, "5432", pg.port)
}

func TestNew_MissingUser(t *testing.T) {
	_, err := New(engine.Options{})
	assert.Error(t, err)
}

// TestPostgresEngine_Integration exercises the full dump, restore and
// clone cycle against a real PostgreSQL container. Requires the
// PostgreSQL client tools on the host.
func TestPostgresEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	for _, tool := range []string{"pg_dump", "psql"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found in PATH", tool)
		}
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("app_production"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	e, err := New(engine.Options{
		"host":     host,
		"port":     port.Port(),
		"user":     "testuser",
		"password": "testpass",
	})
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	defer db.Close()

	require.Eventually(t, func() bool {
		return db.Ping() == nil
	}, 10*time.Second, 100*time.Millisecond)

	_, err = db.Exec(`CREATE TABLE users (id SERIAL PRIMARY KEY, name VARCHAR(100) NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (name) VALUES ('Alice'), ('Bob'), ('Charlie')`)
	require.NoError(t, err)

	// Dump
	dump, err := e.Dump(ctx, "app_production")
	require.NoError(t, err)

	// Clone into a staging database
	err = e.Clone(ctx, "app_staging", dump)
	require.NoError(t, err)
	require.NoError(t, dump.Close())

	stagingConn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/app_staging?sslmode=disable", host, port.Port())
	stagingDB, err := sql.Open("pgx", stagingConn)
	require.NoError(t, err)
	defer stagingDB.Close()

	var count int
	require.NoError(t, stagingDB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 3, count)

	// Mutate the source, then restore the staging copy over it
	_, err = db.Exec(`DELETE FROM users`)
	require.NoError(t, err)

	dump2, err := e.Dump(ctx, "app_staging")
	require.NoError(t, err)
	require.NoError(t, e.Restore(ctx, "app_production", dump2))
	require.NoError(t, dump2.Close())

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestDump_BadConnection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("pg_dump"); err != nil {
		t.Skip("pg_dump not found in PATH")
	}

	e, err := New(engine.Options{
		"host": "127.0.0.1",
		"port": "1", // Nothing listens here
		"user": "nobody",
	})
	require.NoError(t, err)

	dump, err := e.Dump(context.Background(), "nope")
	require.NoError(t, err)

	// The failure surfaces when the stream is drained
	buf := make([]byte, 1024)
	var readErr error
	for readErr == nil {
		_, readErr = dump.Read(buf)
	}
	assert.ErrorIs(t, readErr, engine.ErrEngineFailure)
}
