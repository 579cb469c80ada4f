package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"kerngen/internal/diag"
	"kerngen/internal/kernel"
	"kerngen/internal/source"
)

// Bump when cachePayload changes shape.
const diskCacheSchemaVersion uint16 = 2

// Digest is a sha256 cache key.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DiskCache stores Module Data per configuration digest. Safe for
// concurrent use; entries are written atomically.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// cachePayload is the msgpack record of one entry.
type cachePayload struct {
	Schema      uint16             `msgpack:"schema"`
	Version     string             `msgpack:"version"`
	Module      *kernel.ModuleData `msgpack:"module"`
	Diagnostics []cachedDiagnostic `msgpack:"diagnostics"`
}

// cachedDiagnostic keeps byte offsets only; the file is always the config.
type cachedDiagnostic struct {
	Severity uint8        `msgpack:"severity"`
	Code     uint16       `msgpack:"code"`
	Message  string       `msgpack:"message"`
	Start    uint32       `msgpack:"start"`
	End      uint32       `msgpack:"end"`
	Notes    []cachedNote `msgpack:"notes"`
}

type cachedNote struct {
	Start uint32 `msgpack:"start"`
	End   uint32 `msgpack:"end"`
	Msg   string `msgpack:"msg"`
}

// OpenDiskCache opens $XDG_CACHE_HOME/<app> (or ~/.cache/<app>).
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens a cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	// подкаталог "modules", чтобы проще чистить
	return filepath.Join(c.dir, "modules", key.String()+".mp")
}

func (c *DiskCache) put(key Digest, payload *cachePayload) (err error) {
	if c == nil {
		return nil
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
	renamed := false
	defer func() {
		if renamed {
			return
		}
		_ = f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// атомарная замена
	if err := os.Rename(f.Name(), p); err != nil {
		return err
	}
	renamed = true
	return nil
}

func (c *DiskCache) get(key Digest, out *cachePayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// Store saves data and the diagnostics produced while building it.
func (c *DiskCache) Store(key Digest, data *kernel.ModuleData, diags []diag.Diagnostic, toolVersion string) error {
	payload := &cachePayload{
		Schema:  diskCacheSchemaVersion,
		Version: toolVersion,
		Module:  data,
	}
	for _, d := range diags {
		cd := cachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, cachedNote{Start: n.Span.Start, End: n.Span.End, Msg: n.Msg})
		}
		payload.Diagnostics = append(payload.Diagnostics, cd)
	}
	return c.put(key, payload)
}

// Load restores an entry; diagnostics are re-anchored in file. A missing
// entry or an entry from another schema or tool version is a miss.
func (c *DiskCache) Load(key Digest, file source.FileID, toolVersion string) (*kernel.ModuleData, []diag.Diagnostic, bool, error) {
	var payload cachePayload
	ok, err := c.get(key, &payload)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	if payload.Schema != diskCacheSchemaVersion || payload.Version != toolVersion || payload.Module == nil {
		return nil, nil, false, nil
	}
	diags := make([]diag.Diagnostic, 0, len(payload.Diagnostics))
	for _, cd := range payload.Diagnostics {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code),
			source.Span{File: file, Start: cd.Start, End: cd.End}, cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(source.Span{File: file, Start: n.Start, End: n.End}, n.Msg)
		}
		diags = append(diags, d)
	}
	return payload.Module, diags, true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "modules"))
}

// CacheKey hashes everything Module Data depends on: the normalised config
// bytes, the tool version and the support directory listing.
func CacheKey(content []byte, toolVersion string, opts BuildOptions) (Digest, error) {
	h := sha256.New()
	fmt.Fprintf(h, "kerngen-cache/%d\x00%s\x00", diskCacheSchemaVersion, toolVersion)
	_, _ = h.Write(content)
	if opts.SupportDir != "" {
		files, err := supportSources(opts.SupportDir)
		if err != nil {
			return Digest{}, err
		}
		sort.Strings(files)
		fmt.Fprintf(h, "\x00support:%s", opts.SupportDir)
		for _, f := range files {
			fmt.Fprintf(h, "\x00%s", f)
		}
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}
