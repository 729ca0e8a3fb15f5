package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/classindex/internal/classes"
)

func searchFixture() *ClassIndex {
	ix := emptyIndex()
	put := func(name, parent, file string, props ...classes.Property) {
		ix.Entries[name] = &IndexEntry{Class: record(name, parent, file, props...), FileHash: "h"}
	}
	put("B_Soldier_F", "Soldier_Base_F", "units/soldiers.hpp", classes.Property{Key: "displayName", Value: "Rifleman"})
	put("Soldier_Base_F", "Man", "units/base.hpp")
	put("MainTurret", "", "vehicles/mrap.hpp", classes.Property{Key: "weapons", Value: `["HMG_127"]`})
	return ix
}

func hitNames(hits []SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Name
	}
	return out
}

func TestSearcher_Search(t *testing.T) {
	s, err := NewSearcher(context.Background(), searchFixture())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"exact class name", "MainTurret", []string{"MainTurret"}},
		{"camel case part", "turret", []string{"MainTurret"}},
		{"property value", "rifleman", []string{"B_Soldier_F"}},
		{"weapon inside array", "hmg_127", []string{"MainTurret"}},
		{"file path", "mrap", []string{"MainTurret"}},
		{"no match", "helicopter", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := s.Search(context.Background(), tt.query, 10)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, hitNames(hits))
		})
	}
}

func TestSearcher_SnakeCasePartMatchesBoth(t *testing.T) {
	s, err := NewSearcher(context.Background(), searchFixture())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	hits, err := s.Search(context.Background(), "soldier", 10)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B_Soldier_F", "Soldier_Base_F"}, hitNames(hits))
	for _, h := range hits {
		assert.Positive(t, h.Score)
	}
}

func TestSearcher_LimitAndBlankQuery(t *testing.T) {
	s, err := NewSearcher(context.Background(), searchFixture())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	hits, err := s.Search(context.Background(), "soldier", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTokenizeIdentifiers(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"B_Soldier_F", []string{"b_soldier_f", "soldier"}},
		{"displayName", []string{"displayname", "display", "name"}},
		{"HMGTurret x", []string{"hmgturret", "hmg", "turret", "x"}},
		{"scope 2", []string{"scope", "2"}},
		{"__", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeIdentifiers(tt.input))
		})
	}
}
