// Package storagetest provides an in-memory Storage for tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dbkeep/dbkeep/internal/storage"
)

type object struct {
	data         []byte
	lastModified time.Time
}

// Fake is an in-memory storage.Storage. Objects keep whatever
// LastModified they were seeded with, so tests control ordering.
type Fake struct {
	mu       sync.Mutex
	objects  map[string]object
	phantoms map[string]time.Time

	// Optional failure injection
	FailStore  error
	FailList   error
	FailGet    error
	FailDelete error

	// FailStoreN makes the next N Store calls fail, then clears.
	FailStoreN int

	// Deleted records every key passed to Delete, in order.
	Deleted []string
}

// NewFake creates an empty fake store.
func NewFake() *Fake {
	return &Fake{objects: make(map[string]object)}
}

// Seed adds an object with the given key, content and last-modified time.
func (f *Fake) Seed(key, content string, lastModified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = object{data: []byte(content), lastModified: lastModified}
}

// SeedPhantom adds a key that shows up in listings but has no object
// behind it, as an eventually consistent store can briefly do.
func (f *Fake) SeedPhantom(key string, lastModified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phantoms == nil {
		f.phantoms = make(map[string]time.Time)
	}
	f.phantoms[key] = lastModified
}

// Has reports whether the key exists.
func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// Content returns the stored bytes for key.
func (f *Fake) Content(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key].data
}

// Keys returns all stored keys, sorted.
func (f *Fake) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *Fake) Store(ctx context.Context, key string, reader io.Reader) error {
	if f.FailStore != nil {
		return f.FailStore
	}
	f.mu.Lock()
	if f.FailStoreN > 0 {
		f.FailStoreN--
		f.mu.Unlock()
		return fmt.Errorf("transient store failure")
	}
	f.mu.Unlock()
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = object{data: data, lastModified: time.Now()}
	return nil
}

func (f *Fake) List(ctx context.Context, prefix string) ([]storage.BackupFile, error) {
	if f.FailList != nil {
		return nil, f.FailList
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var files []storage.BackupFile
	for key, obj := range f.objects {
		if strings.HasPrefix(key, prefix) {
			files = append(files, storage.BackupFile{
				Key:          key,
				Size:         int64(len(obj.data)),
				LastModified: obj.lastModified,
			})
		}
	}
	for key, lastModified := range f.phantoms {
		if strings.HasPrefix(key, prefix) {
			files = append(files, storage.BackupFile{Key: key, LastModified: lastModified})
		}
	}
	// Map order is random, which is what a backend listing may be too
	return files, nil
}

func (f *Fake) Delete(ctx context.Context, key string) error {
	if f.FailDelete != nil {
		return f.FailDelete
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, key)
	if _, ok := f.objects[key]; !ok {
		return fmt.Errorf("delete %s: %w", key, os.ErrNotExist)
	}
	delete(f.objects, key)
	return nil
}

func (f *Fake) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.FailGet != nil {
		return nil, f.FailGet
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}
