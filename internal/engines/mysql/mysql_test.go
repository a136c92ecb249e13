package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/dbkeep/dbkeep/internal/engine"
	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNew(t *testing.T) {
	e, err := New(engine.Options{"user": "root"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", e.Name())
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(engine.Options{"user": "root"})
	require.NoError(t, err)

	my := e.(*MySQLEngine)
	assert.Equal(t, "127.0.0.1", my.host)
	assert.Equal(t, "3306", my.port)
}

func TestNew_MissingUser(t *testing.T) {
	_, err := New(engine.Options{})
	assert.Error(t, err)
}

// TestMySQLEngine_Integration exercises the full dump, restore and
// clone cycle against a real MySQL container. Requires the MySQL
// client tools on the host.
func TestMySQLEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	for _, tool := range []string{"mysqldump", "mysql"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found in PATH", tool)
		}
	}

	ctx := context.Background()

	mysqlContainer, err := mysql.Run(ctx,
		"mysql:8.0",
		mysql.WithDatabase("app_production"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() {
		if err := mysqlContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	host, err := mysqlContainer.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlContainer.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	e, err := New(engine.Options{
		"host":     host,
		"port":     port.Port(),
		"user":     "root",
		"password": "testpass",
	})
	require.NoError(t, err)

	dsn := fmt.Sprintf("root:testpass@tcp(%s:%s)/app_production", host, port.Port())
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.Eventually(t, func() bool {
		return db.Ping() == nil
	}, 30*time.Second, 500*time.Millisecond)

	_, err = db.Exec(`CREATE TABLE users (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(100) NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (name) VALUES ('Alice'), ('Bob'), ('Charlie')`)
	require.NoError(t, err)

	// Dump, then clone into a staging database
	dump, err := e.Dump(ctx, "app_production")
	require.NoError(t, err)

	err = e.Clone(ctx, "app_staging", dump)
	require.NoError(t, err)
	require.NoError(t, dump.Close())

	stagingDSN := fmt.Sprintf("root:testpass@tcp(%s:%s)/app_staging", host, port.Port())
	stagingDB, err := sql.Open("mysql", stagingDSN)
	require.NoError(t, err)
	defer stagingDB.Close()

	var count int
	require.NoError(t, stagingDB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 3, count)

	// Mutate the source, then restore it from a staging dump
	_, err = db.Exec(`DELETE FROM users`)
	require.NoError(t, err)

	dump2, err := e.Dump(ctx, "app_staging")
	require.NoError(t, err)
	require.NoError(t, e.Restore(ctx, "app_production", dump2))
	require.NoError(t, dump2.Close())

	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 3, count)
}
