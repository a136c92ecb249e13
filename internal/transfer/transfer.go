// Package transfer streams remote backup objects to local files.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dbkeep/dbkeep/internal/naming"
	"github.com/dbkeep/dbkeep/internal/storage"
)

// ErrTransferFailed indicates an I/O error while streaming an object.
var ErrTransferFailed = errors.New("transfer failed")

// chunkSize is the copy buffer size; progress is reported per chunk.
const chunkSize = 1 << 20

// Downloader fetches backup objects into a local directory.
type Downloader struct {
	store storage.Storage
	dir   string
}

// NewDownloader creates a downloader writing into dir. An empty dir
// means the current working directory.
func NewDownloader(store storage.Storage, dir string) *Downloader {
	return &Downloader{store: store, dir: dir}
}

// Download streams file to "{dir}/{localFilename}" and returns the
// local path. The object is written to a temp file in the same
// directory and renamed on success, so a failed transfer never leaves a
// half-written file under the final name.
func (d *Downloader) Download(ctx context.Context, file storage.BackupFile) (string, error) {
	filename := naming.LocalFilename(file.Key)
	dest := filepath.Join(d.dir, filename)

	body, err := d.store.Get(ctx, file.Key)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTransferFailed, file.Key, err)
	}
	defer body.Close()

	// Next to the destination, not os.TempDir: the rename below must
	// stay on one filesystem. filepath.Dir yields "." for a bare
	// filename, so an empty dir still means the working directory.
	tmp, err := os.CreateTemp(filepath.Dir(dest), filename+".partial-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	written, err := d.copyWithProgress(ctx, tmp, body, file)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %s after %d bytes: %v", ErrTransferFailed, file.Key, written, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	slog.Info("download completed", "key", file.Key, "path", dest, "size", written)
	return dest, nil
}

func (d *Downloader) copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, file storage.BackupFile) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, writeErr
			}
			written += int64(n)
			slog.Debug("downloading", "key", file.Key, "bytes", written, "total", file.Size)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
