package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"candlehub/internal/logger"
)

// FileTier is the mandatory durable tier: a local hierarchy partitioned by
// provider, then interval, then a filesystem-safe instrument name. Entries
// never expire on their own; staleness is judged from the sidecar by the
// manager, and TTL passed to Set is ignored.
type FileTier struct {
	Base string
}

const (
	extBinary = ".ctb"
	extCSV    = ".csv"
	extMeta   = ".meta"
)

func NewFileTier(base string) *FileTier {
	return &FileTier{Base: base}
}

func (f *FileTier) Name() string { return "file" }

func safeInstrument(instrument string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(instrument) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (f *FileTier) basePath(key Key) string {
	return filepath.Join(f.Base, key.Provider, key.Interval, safeInstrument(key.Instrument))
}

func (f *FileTier) Get(ctx context.Context, key Key) ([]byte, bool) {
	base := f.basePath(key)
	if payload, err := os.ReadFile(base + extBinary); err == nil {
		return payload, true
	}
	// Fallback artifact written when the binary encode failed: decode the
	// CSV and re-encode so callers always see the binary format.
	raw, err := os.ReadFile(base + extCSV)
	if err != nil {
		return nil, false
	}
	t, err := DecodeCSV(raw)
	if err != nil {
		logger.Warnf("cache file: corrupt csv artifact %s: %v", base+extCSV, err)
		return nil, false
	}
	meta, ok := f.Meta(key)
	if ok {
		t.Source = meta.Provider
	}
	if t.Source == "" {
		t.Source = key.Provider
	}
	return Encode(t, time.Unix(meta.CachedAt, 0)), true
}

func (f *FileTier) Set(ctx context.Context, key Key, payload []byte, ttl time.Duration) {
	base := f.basePath(key)
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		logger.Warnf("cache file: mkdir %s: %v", filepath.Dir(base), err)
		return
	}
	meta, ok := PeekMeta(payload)
	if !ok {
		logger.Warnf("cache file: refusing to store undecodable payload for %s", key)
		return
	}
	if err := os.WriteFile(base+extBinary, payload, 0o644); err != nil {
		logger.Warnf("cache file: binary write failed for %s, falling back to csv: %v", key, err)
		t, _, derr := Decode(payload)
		if derr != nil {
			return
		}
		if werr := os.WriteFile(base+extCSV, EncodeCSV(t), 0o644); werr != nil {
			logger.Warnf("cache file: csv fallback write failed for %s: %v", key, werr)
			return
		}
	}
	if err := os.WriteFile(base+extMeta, meta.Marshal(), 0o644); err != nil {
		logger.Warnf("cache file: meta write failed for %s: %v", key, err)
	}
}

func (f *FileTier) Delete(ctx context.Context, key Key) {
	base := f.basePath(key)
	for _, ext := range []string{extBinary, extCSV, extMeta} {
		if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
			logger.Warnf("cache file: remove %s: %v", base+ext, err)
		}
	}
}

// Meta reads the sidecar record for key.
func (f *FileTier) Meta(key Key) (Meta, bool) {
	raw, err := os.ReadFile(f.basePath(key) + extMeta)
	if err != nil {
		return Meta{}, false
	}
	meta, err := ParseMeta(raw)
	if err != nil {
		logger.Warnf("cache file: malformed meta for %s: %v", key, err)
		return Meta{}, false
	}
	return meta, true
}
