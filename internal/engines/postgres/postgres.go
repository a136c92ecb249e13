// Package postgres adapts PostgreSQL servers via the client tools.
package postgres

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dbkeep/dbkeep/internal/engine"
	"github.com/klauspost/compress/gzip"
)

// New creates a PostgreSQL engine from connection options. Recognized
// options: host, port, user, password.
func New(options engine.Options) (engine.Engine, error) {
	user := options["user"]
	if user == "" {
		return nil, fmt.Errorf("postgres engine requires 'user' option")
	}

	host := options["host"]
	if host == "" {
		host = "127.0.0.1"
	}

	port := options["port"]
	if port == "" {
		port = "5432"
	}

	return &PostgresEngine{
		host:     host,
		port:     port,
		user:     user,
		password: options["password"],
	}, nil
}

// PostgresEngine shells out to pg_dump and psql, passing the password
// via PGPASSWORD.
type PostgresEngine struct {
	host     string
	port     string
	user     string
	password string
}

// Name returns the engine identifier
func (p *PostgresEngine) Name() string {
	return "postgres"
}

func (p *PostgresEngine) connArgs() []string {
	return []string{
		"-h", p.host,
		"-p", p.port,
		"-U", p.user,
	}
}

func (p *PostgresEngine) env() []string {
	return append(os.Environ(), "PGPASSWORD="+p.password)
}

// Dump streams `pg_dump <database>` through gzip.
func (p *PostgresEngine) Dump(ctx context.Context, database string) (io.ReadCloser, error) {
	args := append(p.connArgs(), "--no-owner", database)

	cmd := exec.CommandContext(ctx, "pg_dump", args...)
	cmd.Env = p.env()

	pr, pw := io.Pipe()
	gz := gzip.NewWriter(pw)
	cmd.Stdout = gz

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("%w: failed to start pg_dump: %v", engine.ErrEngineFailure, err)
	}

	go func() {
		runErr := cmd.Wait()
		if closeErr := gz.Close(); runErr == nil {
			runErr = closeErr
		}
		if runErr != nil {
			pw.CloseWithError(fmt.Errorf("%w: pg_dump %s: %v: %s",
				engine.ErrEngineFailure, database, runErr, strings.TrimSpace(stderr.String())))
			return
		}
		pw.Close()
	}()

	return pr, nil
}

// Restore feeds a compressed dump into `psql -d <database>`.
func (p *PostgresEngine) Restore(ctx context.Context, database string, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: failed to decompress dump: %v", engine.ErrEngineFailure, err)
	}
	defer gz.Close()

	args := append(p.connArgs(), "-v", "ON_ERROR_STOP=1", "-d", database)
	cmd := exec.CommandContext(ctx, "psql", args...)
	cmd.Env = p.env()
	cmd.Stdin = gz

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: psql restore into %s: %v: %s",
			engine.ErrEngineFailure, database, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// Clone recreates targetDatabase and loads the dump into it.
func (p *PostgresEngine) Clone(ctx context.Context, targetDatabase string, r io.Reader) error {
	drop := fmt.Sprintf(`DROP DATABASE IF EXISTS "%s"`, targetDatabase)
	create := fmt.Sprintf(`CREATE DATABASE "%s"`, targetDatabase)

	if err := p.execStatement(ctx, drop); err != nil {
		return err
	}
	if err := p.execStatement(ctx, create); err != nil {
		return err
	}

	return p.Restore(ctx, targetDatabase, r)
}

// execStatement runs a single statement against the maintenance
// database. CREATE/DROP DATABASE cannot run inside a transaction, so
// each statement is its own psql invocation.
func (p *PostgresEngine) execStatement(ctx context.Context, statement string) error {
	args := append(p.connArgs(), "-v", "ON_ERROR_STOP=1", "-d", "postgres", "-c", statement)
	cmd := exec.CommandContext(ctx, "psql", args...)
	cmd.Env = p.env()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: psql: %v: %s",
			engine.ErrEngineFailure, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}
