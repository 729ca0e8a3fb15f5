package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"

	"github.com/Aman-CERP/classindex/internal/classes"
	cerrors "github.com/Aman-CERP/classindex/internal/errors"
)

// Hash algorithm names.
const (
	HashSHA256 = "sha256"
	HashXXH3   = "xxh3"
)

// DefaultHashCacheSize bounds the content hash cache.
const DefaultHashCacheSize = 4096

// racyWindow is how old a file's mtime must be before its digest is
// cached. Files modified more recently could change again without a
// visible mtime or size change.
const racyWindow = 2 * time.Second

// ReconcileStats summarizes one reconciliation pass. RemovedClasses is
// always zero; entries are never removed.
type ReconcileStats struct {
	TotalClasses   int `json:"total_classes"`
	TotalFiles     int `json:"total_files"`
	AddedClasses   int `json:"added_classes"`
	UpdatedClasses int `json:"updated_classes"`
	RemovedClasses int `json:"removed_classes"`
	Conflicts      int `json:"conflicts"`
}

// HashFunc returns the hex digest function for an algorithm name.
func HashFunc(algorithm string) (func([]byte) string, error) {
	switch algorithm {
	case "", HashSHA256:
		return func(b []byte) string {
			sum := sha256.Sum256(b)
			return hex.EncodeToString(sum[:])
		}, nil
	case HashXXH3:
		return func(b []byte) string {
			return fmt.Sprintf("%016x", xxh3.Hash(b))
		}, nil
	default:
		return nil, cerrors.ValidationError(fmt.Sprintf("unknown hash algorithm: %q", algorithm), nil)
	}
}

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	// HashAlgorithm is HashSHA256 (default) or HashXXH3.
	HashAlgorithm string

	// CacheSize bounds the hash cache. Zero uses DefaultHashCacheSize.
	CacheSize int

	// Clock returns the timestamp for a pass. Defaults to time.Now in UTC.
	Clock func() time.Time
}

// Reconciler upserts scan records into a ClassIndex keyed by class name,
// using whole-file content hashes to detect change.
type Reconciler struct {
	hash  func([]byte) string
	clock func() time.Time
	// cache maps path, size and mtime to a digest so unchanged files are
	// not re-read across passes.
	cache *lru.Cache[string, string]
}

// NewReconciler creates a Reconciler.
func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	hash, err := HashFunc(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultHashCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create hash cache: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Reconciler{hash: hash, clock: clock, cache: cache}, nil
}

// Digest hashes data with the configured algorithm.
func (r *Reconciler) Digest(data []byte) string {
	return r.hash(data)
}

// Reconcile merges records into ix, hashing every source file from disk.
func (r *Reconciler) Reconcile(ix *ClassIndex, records []classes.ClassRecord) ReconcileStats {
	return r.ReconcileDigests(ix, records, nil)
}

// ReconcileDigests merges records into ix. digests maps a source file to
// the hash of the content its records were extracted from; files missing
// from digests are hashed from disk.
//
// Records are ordered by source file path before the merge, with records
// that have no source file last. When several file records share a name,
// the one from the lexicographically last file is merged and the others
// only register the name against their file. Records without a source
// file are always written and take precedence. A name claimed by more
// than one file counts as a conflict.
func (r *Reconciler) ReconcileDigests(ix *ClassIndex, records []classes.ClassRecord, digests map[string]string) ReconcileStats {
	var stats ReconcileStats
	now := r.clock()

	sorted := make([]classes.ClassRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].SourceFile, sorted[j].SourceFile
		if (a == "") != (b == "") {
			return b == ""
		}
		return a < b
	})

	winner := make(map[string]int, len(sorted))
	owners := make(map[string]map[string]struct{})
	for i, rec := range sorted {
		winner[rec.Name] = i
		if owners[rec.Name] == nil {
			owners[rec.Name] = make(map[string]struct{}, 1)
		}
		owners[rec.Name][rec.SourceFile] = struct{}{}
	}

	passHashes := make(map[string]string)
	for i, rec := range sorted {
		if rec.SourceFile == "" {
			r.write(ix, rec, UnknownHash, now, &stats)
			continue
		}

		hash, ok := passHashes[rec.SourceFile]
		if !ok {
			if hash, ok = digests[rec.SourceFile]; !ok {
				hash = r.fileHash(rec.SourceFile)
			}
			passHashes[rec.SourceFile] = hash
		}

		ix.addFileClass(rec.SourceFile, rec.Name)
		if winner[rec.Name] != i {
			continue
		}

		existing, ok := ix.Entries[rec.Name]
		if ok && existing.FileHash == hash {
			continue
		}
		r.write(ix, rec, hash, now, &stats)
	}

	for name, files := range owners {
		if len(files) < 2 {
			continue
		}
		stats.Conflicts++
		slog.Warn("class defined in multiple files",
			slog.String("class", name),
			slog.Int("files", len(files)),
			slog.String("kept", sorted[winner[name]].SourceFile))
	}

	ix.UpdatedAt = now
	stats.TotalClasses = len(ix.Entries)
	stats.TotalFiles = len(ix.FileClasses)

	slog.Info("reconcile_complete",
		slog.Int("total_classes", stats.TotalClasses),
		slog.Int("total_files", stats.TotalFiles),
		slog.Int("added_classes", stats.AddedClasses),
		slog.Int("updated_classes", stats.UpdatedClasses),
		slog.Int("conflicts", stats.Conflicts))
	return stats
}

// write inserts or replaces the entry for rec, preserving added_at.
func (r *Reconciler) write(ix *ClassIndex, rec classes.ClassRecord, hash string, now time.Time, stats *ReconcileStats) {
	entry := &IndexEntry{Class: rec, AddedAt: now, UpdatedAt: now, FileHash: hash}
	if existing, ok := ix.Entries[rec.Name]; ok {
		entry.AddedAt = existing.AddedAt
		stats.UpdatedClasses++
	} else {
		stats.AddedClasses++
	}
	ix.Entries[rec.Name] = entry
}

// fileHash digests the whole file, or returns UnknownHash when it
// cannot be read.
func (r *Reconciler) fileHash(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("cannot hash file", slog.String("path", path), slog.String("error", err.Error()))
		return UnknownHash
	}

	key := path + "\x00" + strconv.FormatInt(info.Size(), 10) + "\x00" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	if h, ok := r.cache.Get(key); ok {
		return h
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("cannot hash file", slog.String("path", path), slog.String("error", err.Error()))
		return UnknownHash
	}

	h := r.hash(data)
	if time.Since(info.ModTime()) > racyWindow {
		r.cache.Add(key, h)
	}
	return h
}
