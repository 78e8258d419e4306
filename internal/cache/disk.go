package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// diskTier is the bounded Tier-2 store: one JSON file per fingerprint in a
// flat directory. Lookup is direct (fingerprint-derived path); directory
// enumeration happens only once, for startup size accounting. Eviction is
// LRU by last access. Not safe for concurrent use on its own; TwoTier
// serializes access.
type diskTier struct {
	dir        string
	maxBytes   int64
	totalBytes int64
	index      map[string]diskMeta
}

type diskMeta struct {
	sizeBytes    int64
	lastAccessed time.Time
}

const entryFileSuffix = ".json"

func newDiskTier(dir string, maxBytes int64) (*diskTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}

	t := &diskTier{
		dir:      dir,
		maxBytes: maxBytes,
		index:    make(map[string]diskMeta),
	}

	// Startup size accounting from directory listing. File modification time
	// stands in for last access until the entry is read again.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate cache dir %s: %w", dir, err)
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entryFileSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		fp := strings.TrimSuffix(de.Name(), entryFileSuffix)
		t.index[fp] = diskMeta{sizeBytes: info.Size(), lastAccessed: info.ModTime()}
		t.totalBytes += info.Size()
	}
	t.evictOver()
	return t, nil
}

// path maps a fingerprint to its file. Fingerprints are lowercase hex
// digests, so no escaping is needed; anything else is rejected by get/put.
func (t *diskTier) path(fingerprint string) string {
	return filepath.Join(t.dir, fingerprint+entryFileSuffix)
}

func validFingerprint(fp string) bool {
	if fp == "" {
		return false
	}
	for _, r := range fp {
		ok := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !ok {
			return false
		}
	}
	return true
}

// get reads an entry, returning (nil, nil) when absent. A readable hit has
// its last-access time refreshed on disk. Corrupt files are deleted and
// reported as an *Error.
func (t *diskTier) get(fingerprint string, now time.Time) (*Entry, error) {
	if !validFingerprint(fingerprint) {
		return nil, nil
	}
	data, err := os.ReadFile(t.path(fingerprint))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Op: "read", Fingerprint: fingerprint, Err: err}
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = t.remove(fingerprint)
		return nil, &Error{Op: "decode", Fingerprint: fingerprint, Err: err}
	}

	entry.LastAccessedAt = now
	if err := t.writeEntry(&entry); err != nil {
		// The value itself is fine; stale access metadata is tolerable.
		return &entry, nil
	}
	return &entry, nil
}

// put writes an entry and evicts least-recently-accessed files until the
// tier fits its byte budget. Values larger than the whole budget are
// silently dropped.
func (t *diskTier) put(entry *Entry) error {
	if !validFingerprint(entry.Fingerprint) {
		return &Error{Op: "write", Fingerprint: entry.Fingerprint, Err: fmt.Errorf("invalid fingerprint")}
	}
	if entry.sizeBytes() > t.maxBytes {
		return nil
	}
	if err := t.writeEntry(entry); err != nil {
		return err
	}
	t.evictOver()
	return nil
}

func (t *diskTier) writeEntry(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return &Error{Op: "encode", Fingerprint: entry.Fingerprint, Err: err}
	}
	if err := os.WriteFile(t.path(entry.Fingerprint), data, 0o644); err != nil {
		return &Error{Op: "write", Fingerprint: entry.Fingerprint, Err: err}
	}

	if prev, ok := t.index[entry.Fingerprint]; ok {
		t.totalBytes -= prev.sizeBytes
	}
	t.index[entry.Fingerprint] = diskMeta{
		sizeBytes:    int64(len(data)),
		lastAccessed: entry.LastAccessedAt,
	}
	t.totalBytes += int64(len(data))
	return nil
}

// remove deletes a fingerprint's file if present.
func (t *diskTier) remove(fingerprint string) error {
	meta, ok := t.index[fingerprint]
	if !ok {
		return nil
	}
	delete(t.index, fingerprint)
	t.totalBytes -= meta.sizeBytes
	if err := os.Remove(t.path(fingerprint)); err != nil && !os.IsNotExist(err) {
		return &Error{Op: "remove", Fingerprint: fingerprint, Err: err}
	}
	return nil
}

// evictOver removes least-recently-accessed entries until totalBytes fits
// the budget.
func (t *diskTier) evictOver() {
	for t.totalBytes > t.maxBytes && len(t.index) > 0 {
		oldestFP := ""
		var oldestAt time.Time
		for fp, meta := range t.index {
			if oldestFP == "" || meta.lastAccessed.Before(oldestAt) {
				oldestFP = fp
				oldestAt = meta.lastAccessed
			}
		}
		_ = t.remove(oldestFP)
	}
}
