// Package mysql adapts MySQL and MariaDB servers via the client tools.
package mysql

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

// New creates a MySQL engine from connection options. Recognized
// options: host, port, user, password.
func New(options engine.Options) (engine.Engine, error) {
	user := options["user"]
	if user == "" {
		return nil, fmt.Errorf("mysql engine requires 'user' option")
	}

	host := options["host"]
	if host == "" {
		host = "127.0.0.1"
	}

	port := options["port"]
	if port == "" {
		port = "3306"
	}

	return &MySQLEngine{
		host:     host,
		port:     port,
		user:     user,
		password: options["password"],
	}, nil
}

// MySQLEngine shells out to mysqldump and mysql. The password travels
// via MYSQL_PWD so it never shows up in the process list.
type MySQLEngine struct {
	host     string
	port     string
	user     string
	password string
}

// Name returns the engine identifier
func (m *MySQLEngine) Name() string {
	return "mysql"
}

func (m *MySQLEngine) connArgs() []string {
	return []string{
		"-h", m.host,
		"-P", m.port,
		"-u", m.user,
		"--protocol", "TCP",
	}
}

func (m *MySQLEngine) env() []string {
	return append(os.Environ(), "MYSQL_PWD="+m.password)
}

// Dump streams `mysqldump <database>` through gzip. The subprocess
// writes into the compressor, the caller reads the compressed side of
// the pipe, so memory use stays bounded for any database size.
func (m *MySQLEngine) Dump(ctx context.Context, database string) (io.ReadCloser, error) {
	args := append([]string{
		"--single-transaction",
		"--routines",
		"--triggers",
	}, m.connArgs()...)
	args = append(args, database)

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	cmd.Env = m.env()

	pr, pw := io.Pipe()
	gz := gzip.NewWriter(pw)
	cmd.Stdout = gz

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("%w: failed to start mysqldump: %v", engine.ErrEngineFailure, err)
	}

	go func() {
		runErr := cmd.Wait()
		if closeErr := gz.Close(); runErr == nil {
			runErr = closeErr
		}
		if runErr != nil {
			pw.CloseWithError(fmt.Errorf("%w: mysqldump %s: %v: %s",
				engine.ErrEngineFailure, database, runErr, strings.TrimSpace(stderr.String())))
			return
		}
		pw.Close()
	}()

	return pr, nil
}

// Restore feeds a compressed dump into `mysql <database>`.
func (m *MySQLEngine) Restore(ctx context.Context, database string, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: failed to decompress dump: %v", engine.ErrEngineFailure, err)
	}
	defer gz.Close()

	args := append(m.connArgs(), database)
	cmd := exec.CommandContext(ctx, "mysql", args...)
	cmd.Env = m.env()
	cmd.Stdin = gz

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: mysql restore into %s: %v: %s",
			engine.ErrEngineFailure, database, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// Clone recreates targetDatabase and loads the dump into it.
func (m *MySQLEngine) Clone(ctx context.Context, targetDatabase string, r io.Reader) error {
	statements := fmt.Sprintf(
		"DROP DATABASE IF EXISTS `%s`; CREATE DATABASE `%s`;",
		targetDatabase, targetDatabase,
	)
	if err := m.execStatement(ctx, statements); err != nil {
		return err
	}

	return m.Restore(ctx, targetDatabase, r)
}

func (m *MySQLEngine) execStatement(ctx context.Context, statement string) error {
	args := append(m.connArgs(), "-e", statement)
	cmd := exec.CommandContext(ctx, "mysql", args...)
	cmd.Env = m.env()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: mysql: %v: %s",
			engine.ErrEngineFailure, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}
