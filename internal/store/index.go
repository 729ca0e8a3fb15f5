// Package store holds the persistent class index: reconciliation of scan
// records into it, queries over it, and its on-disk, search and SQLite
// representations.
package store

import (
	"sort"
	"time"

	"github.com/Aman-CERP/classindex/internal/classes"
)

// UnknownHash marks an entry whose file content could not be hashed.
const UnknownHash = "unknown"

// IndexEntry is one class in the index.
type IndexEntry struct {
	Class     classes.ClassRecord `json:"class"`
	AddedAt   time.Time           `json:"added_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	FileHash  string              `json:"file_hash"`
}

// ClassIndex maps class names to entries and files to the names they
// contributed. Names are unique; the last reconciled record wins.
type ClassIndex struct {
	Entries     map[string]*IndexEntry `json:"entries"`
	FileClasses map[string][]string    `json:"file_classes"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Version     string                 `json:"version"`
}

// NewClassIndex creates an empty index stamped with now.
func NewClassIndex(version string, now time.Time) *ClassIndex {
	return &ClassIndex{
		Entries:     make(map[string]*IndexEntry),
		FileClasses: make(map[string][]string),
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     version,
	}
}

// Len returns the number of classes.
func (ix *ClassIndex) Len() int {
	return len(ix.Entries)
}

// Get returns the entry for an exact class name.
func (ix *ClassIndex) Get(name string) (*IndexEntry, bool) {
	e, ok := ix.Entries[name]
	return e, ok
}

// ClassesInFile returns the entries for the names recorded against path.
// Names whose entry no longer exists are skipped.
func (ix *ClassIndex) ClassesInFile(path string) []*IndexEntry {
	names := ix.FileClasses[path]
	out := make([]*IndexEntry, 0, len(names))
	for _, name := range names {
		if e, ok := ix.Entries[name]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Files returns the indexed file paths in sorted order.
func (ix *ClassIndex) Files() []string {
	files := make([]string, 0, len(ix.FileClasses))
	for f := range ix.FileClasses {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Names returns every class name in sorted order.
func (ix *ClassIndex) Names() []string {
	names := make([]string, 0, len(ix.Entries))
	for n := range ix.Entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Stats reports the index totals.
func (ix *ClassIndex) Stats() ReconcileStats {
	return ReconcileStats{
		TotalClasses: len(ix.Entries),
		TotalFiles:   len(ix.FileClasses),
	}
}

// addFileClass records name against path once.
func (ix *ClassIndex) addFileClass(path, name string) {
	for _, n := range ix.FileClasses[path] {
		if n == name {
			return
		}
	}
	ix.FileClasses[path] = append(ix.FileClasses[path], name)
}

// normalize replaces nil maps left by a decoded document.
func (ix *ClassIndex) normalize() {
	if ix.Entries == nil {
		ix.Entries = make(map[string]*IndexEntry)
	}
	if ix.FileClasses == nil {
		ix.FileClasses = make(map[string][]string)
	}
	for name, e := range ix.Entries {
		if e == nil {
			delete(ix.Entries, name)
		}
	}
}
