// Copyright © 2024 The ELPS authors

package project

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/vmihailenco/msgpack/v5"
)

// cacheSchemaVersion is bumped whenever a stored record changes shape.
// Records written under another version read as misses.
const cacheSchemaVersion uint16 = 1

// Digest is a SHA-256 content hash.
type Digest [sha256.Size]byte

// DigestOf hashes b.
func DigestOf(b []byte) Digest {
	return sha256.Sum256(b)
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Cache stores msgpack encoded records under a directory. It is safe for
// concurrent use.
type Cache struct {
	mu  sync.RWMutex
	fs  afero.Fs
	dir string
}

type envelope struct {
	Schema uint16
	Key    string
	Data   msgpack.RawMessage
}

// NewCache returns a cache rooted at dir on fsys.
func NewCache(fsys afero.Fs, dir string) *Cache {
	return &Cache{fs: fsys, dir: dir}
}

// Cache returns the record cache stored under the project's cache root.
func (p *Project) Cache() *Cache {
	return NewCache(p.Fs, p.CacheRoot)
}

func (c *Cache) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, "records", hex.EncodeToString(sum[:])+".mp")
}

// Put encodes v and stores it under key, replacing any earlier record.
func (c *Cache) Put(key string, v any) error {
	if c == nil {
		return nil
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	b, err := msgpack.Marshal(&envelope{Schema: cacheSchemaVersion, Key: key, Data: data})
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := c.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := afero.TempFile(c.fs, filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = c.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	return c.fs.Rename(tmp, p)
}

// Get decodes the record stored under key into v. It reports false when no
// usable record exists.
func (c *Cache) Get(key string, v any) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, err := afero.ReadFile(c.fs, c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	if env.Schema != cacheSchemaVersion || env.Key != key {
		return false, nil
	}
	if err := msgpack.Unmarshal(env.Data, v); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

// Drop removes every stored record.
func (c *Cache) Drop() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fs.RemoveAll(filepath.Join(c.dir, "records"))
}
