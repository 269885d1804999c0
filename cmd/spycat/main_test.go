package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spycats/internal/domain"
	"spycats/internal/engine"
)

func TestParseTargets(t *testing.T) {
	got, err := parseTargets([]string{"Alpha:Freedonia", " Agent: X :Sylvania "})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Name)
	assert.Equal(t, "Freedonia", got[0].Country)
	assert.Equal(t, "Agent: X", got[1].Name)
	assert.Equal(t, "Sylvania", got[1].Country)

	for _, bad := range []string{"Alpha", ":Freedonia", "Alpha:"} {
		_, err := parseTargets([]string{bad})
		assert.ErrorIs(t, err, engine.ErrValidation, bad)
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("cat", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseID("cat", bad)
		assert.ErrorIs(t, err, engine.ErrValidation, bad)
	}
}

func TestExitCode(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("x: %w", engine.ErrValidation):            2,
		fmt.Errorf("x: %w", engine.ErrNotFound):              3,
		fmt.Errorf("x: %w", engine.ErrConflict):              4,
		fmt.Errorf("x: %w", engine.ErrDependencyUnavailable): 5,
		errors.New("boom"): 1,
	}
	for err, want := range cases {
		assert.Equal(t, want, exitCode(err), err.Error())
	}
}

func TestFieldRowsFlattens(t *testing.T) {
	mission := int64(7)
	rows, err := fieldRows(map[string]any{
		"database": "ws/.spycats/spycats.db",
		"version":  1,
		"cat":      domain.Cat{ID: 3, Name: "Tom", MissionID: &mission},
		"origins":  []string{"http://a", "http://b"},
	})
	require.NoError(t, err)
	got := map[string]string{}
	for _, r := range rows {
		got[r[0]] = r[1]
	}
	assert.Equal(t, "ws/.spycats/spycats.db", got["database"])
	assert.Equal(t, "1", got["version"])
	assert.Equal(t, "Tom", got["cat.name"])
	assert.Equal(t, "7", got["cat.mission_id"])
	assert.Equal(t, "http://a, http://b", got["origins"])
	for i := 1; i < len(rows); i++ {
		assert.Less(t, rows[i-1][0], rows[i][0], "rows are sorted by field")
	}
}
