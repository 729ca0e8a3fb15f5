package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/classindex/internal/classes"
)

func queryFixture() *ClassIndex {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ix := emptyIndex()
	add := func(name, parent string, added, updated int, props ...classes.Property) {
		ix.Entries[name] = &IndexEntry{
			Class:     record(name, parent, "cfg.hpp", props...),
			AddedAt:   base.Add(time.Duration(added) * time.Hour),
			UpdatedAt: base.Add(time.Duration(updated) * time.Hour),
			FileHash:  "h",
		}
		ix.addFileClass("cfg.hpp", name)
	}
	add("Charlie", "Base", 1, 5, classes.Property{Key: "scope", Value: "2"})
	add("Alpha", "Base", 3, 4, classes.Property{Key: "scope", Value: "1"})
	add("Bravo", "Other", 2, 6, classes.Property{Key: "model", Value: "2"})
	add("Delta", "", 0, 7)
	return ix
}

func names(entries []*IndexEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Class.Name
	}
	return out
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"no options returns everything in name order", QueryOptions{}, []string{"Alpha", "Bravo", "Charlie", "Delta"}},
		{"parent", QueryOptions{Parent: "Base"}, []string{"Alpha", "Charlie"}},
		{"parent no match", QueryOptions{Parent: "Nope"}, []string{}},
		{"property name", QueryOptions{PropertyName: "scope"}, []string{"Alpha", "Charlie"}},
		{"property value", QueryOptions{PropertyValue: "2"}, []string{"Bravo", "Charlie"}},
		{"filters combine", QueryOptions{PropertyName: "scope", PropertyValue: "2"}, []string{"Charlie"}},
		{"sort name desc", QueryOptions{SortBy: SortByName, Descending: true}, []string{"Delta", "Charlie", "Bravo", "Alpha"}},
		{"sort added_at", QueryOptions{SortBy: SortByAddedAt}, []string{"Delta", "Charlie", "Bravo", "Alpha"}},
		{"sort updated_at desc", QueryOptions{SortBy: SortByUpdatedAt, Descending: true}, []string{"Delta", "Bravo", "Charlie", "Alpha"}},
		{"unknown sort key is a no-op", QueryOptions{SortBy: "size", Descending: true}, []string{"Alpha", "Bravo", "Charlie", "Delta"}},
		{"limit after sort", QueryOptions{SortBy: SortByUpdatedAt, Descending: true, Limit: 2}, []string{"Delta", "Bravo"}},
		{"limit after filter", QueryOptions{Parent: "Base", Limit: 1}, []string{"Alpha"}},
		{"limit larger than result", QueryOptions{Limit: 10}, []string{"Alpha", "Bravo", "Charlie", "Delta"}},
	}

	ix := queryFixture()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Query(ix, tt.opts)))
		})
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	assert.Empty(t, Query(emptyIndex(), QueryOptions{SortBy: SortByName, Limit: 5}))
}

func TestClassIndex_Lookups(t *testing.T) {
	ix := queryFixture()

	e, ok := ix.Get("Bravo")
	assert.True(t, ok)
	assert.Equal(t, "Other", e.Class.Parent)

	_, ok = ix.Get("bravo")
	assert.False(t, ok, "lookup is exact")

	assert.Equal(t, []string{"Charlie", "Alpha", "Bravo", "Delta"}, names(ix.ClassesInFile("cfg.hpp")))
	assert.Empty(t, ix.ClassesInFile("other.hpp"))

	ix.FileClasses["stale.hpp"] = []string{"Ghost", "Alpha"}
	assert.Equal(t, []string{"Alpha"}, names(ix.ClassesInFile("stale.hpp")))
	assert.Equal(t, []string{"cfg.hpp", "stale.hpp"}, ix.Files())
}

func TestValidSortKey(t *testing.T) {
	assert.True(t, ValidSortKey("name"))
	assert.True(t, ValidSortKey("added_at"))
	assert.True(t, ValidSortKey("updated_at"))
	assert.False(t, ValidSortKey("Name"))
}
