// Package resultcache stores compile results on disk keyed by fingerprint.
package resultcache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"cexd/internal/fingerprint"
)

// bump when the stored envelope or the cached types change shape
const schemaVersion uint16 = 1

// Cache is a directory of msgpack envelopes. A nil *Cache is a valid no-op
// cache. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type envelope struct {
	Schema uint16
	Body   msgpack.RawMessage
}

// Open returns a cache rooted at dir. Empty dir selects
// $XDG_CACHE_HOME/cexd (or ~/.cache/cexd).
func Open(dir string) (*Cache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "cexd")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key fingerprint.Digest) string {
	k := key.String()
	// двухсимвольный подкаталог, чтобы не держать всё в одной директории
	return filepath.Join(c.dir, "results", k[:2], k+".mp")
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, out any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(out)
}

// Put stores v under key. The write goes to a temp file that is renamed into
// place.
func (c *Cache) Put(key fingerprint.Digest, v any) error {
	if c == nil {
		return nil
	}
	body, err := encode(v)
	if err != nil {
		return fmt.Errorf("resultcache: encode: %w", err)
	}
	data, err := encode(envelope{Schema: schemaVersion, Body: body})
	if err != nil {
		return fmt.Errorf("resultcache: encode: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get loads the value stored under key into out. A missing entry or one
// written with another schema is a miss, not an error.
func (c *Cache) Get(key fingerprint.Digest, out any) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	data, err := os.ReadFile(c.pathFor(key))
	c.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	var env envelope
	if err := decode(data, &env); err != nil {
		return false, fmt.Errorf("resultcache: decode: %w", err)
	}
	if env.Schema != schemaVersion {
		return false, nil
	}
	if err := decode(env.Body, out); err != nil {
		return false, fmt.Errorf("resultcache: decode: %w", err)
	}
	return true, nil
}

// DropAll removes every stored entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(c.dir, "results")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
