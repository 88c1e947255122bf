package rules

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicRecords(t *testing.T) {
	table, err := Parse("0:10:0.5\n10:20:0.8:0.9")
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	r := table.Rules()[0]
	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 10.0, r.Max)
	assert.Equal(t, 0.5, r.Score)
	assert.False(t, r.HasAlt)

	r = table.Rules()[1]
	assert.Equal(t, 0.8, r.Score)
	assert.Equal(t, 0.9, r.AltScore)
	assert.True(t, r.HasAlt)
}

func TestParseCommaSeparated(t *testing.T) {
	table, err := Parse("1:1:0:0,2:2:0.1:0.1,3:3:0.6:0.6,10:10:1:1")
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	rule, ok := table.Match(2)
	require.True(t, ok)
	assert.Equal(t, 0.1, rule.Score)

	rule, ok = table.Match(10)
	require.True(t, ok)
	assert.Equal(t, 1.0, rule.Score)

	_, ok = table.Match(4)
	assert.False(t, ok)
}

func TestParseOpenBounds(t *testing.T) {
	table, err := Parse("*:0:0\n0:*:1")
	require.NoError(t, err)

	r := table.Rules()[0]
	assert.True(t, math.IsInf(r.Min, -1))
	r = table.Rules()[1]
	assert.True(t, math.IsInf(r.Max, 1))

	rule, ok := table.Match(-1e9)
	require.True(t, ok)
	assert.Equal(t, 0.0, rule.Score)
	rule, ok = table.Match(1e9)
	require.True(t, ok)
	assert.Equal(t, 1.0, rule.Score)
}

func TestFirstMatchWins(t *testing.T) {
	table, err := Parse("5:5:9\n0:10:1")
	require.NoError(t, err)
	rule, ok := table.Match(5)
	require.True(t, ok)
	assert.Equal(t, 9.0, rule.Score)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", "   \n  "},
		{"too few fields", "1:2"},
		{"too many fields", "1:2:3:4:5"},
		{"bad number", "a:2:3"},
		{"min exceeds max", "5:1:0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.in)
			assert.Error(t, err)
		})
	}
}

func TestParseErrorReportsRecord(t *testing.T) {
	_, err := Parse("0:1:0.5\nbad:2:3")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Record)
	assert.Equal(t, "bad", perr.Token)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.txt")
	require.NoError(t, os.WriteFile(path, []byte("0:22:1\n23:*:0\n"), 0o644))

	table, err := Load(File(path))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	_, err = Load(File(filepath.Join(t.TempDir(), "missing.txt")))
	assert.Error(t, err)
}

func TestLoadInline(t *testing.T) {
	table, err := Load(Inline("1:1:0.5"))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestSourceIsZero(t *testing.T) {
	assert.True(t, Source{}.IsZero())
	assert.False(t, Inline("x").IsZero())
	assert.False(t, File("x").IsZero())
}
