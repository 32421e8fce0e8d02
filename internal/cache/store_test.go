package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "jun2014")
	require.NoError(t, err)
	return s
}

func TestKeys(t *testing.T) {
	assert.Equal(t, Key("districts.json"), DistrictsKey())
	assert.Equal(t, Key("providers-AL-1.json"), ProvidersKey("AL-1"))
	assert.Equal(t, Key("stats-AL-1-130077.json"), StatsKey("AL-1", "130077"))
	assert.Equal(t, Key("ranking-properties-AL-1.json"), RankingKey("AL-1"))
}

func TestNew_CreatesVersionDir(t *testing.T) {
	root := t.TempDir()
	s, err := New(filepath.Join(root, "data"), "dec2013")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "data", "dec2013"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(root, "data", "dec2013", "summary.csv"), s.SummaryPath())
	assert.Equal(t, filepath.Join(root, "data", "dec2013", "summary.xlsx"), s.SummaryXLSXPath())
}

func TestNew_RequiresVersion(t *testing.T) {
	_, err := New(t.TempDir(), "")
	require.Error(t, err)
}

func TestOpen_MissingVersion(t *testing.T) {
	_, err := Open(t.TempDir(), "jun2014")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestExists(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.Exists(DistrictsKey())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(DistrictsKey(), json.RawMessage(`[]`)))

	ok, err = s.Exists(DistrictsKey())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExists_DirectoryIsNotAFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.Mkdir(s.Path(RankingKey("AL-1")), 0o755))

	ok, err := s.Exists(RankingKey("AL-1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteRead_RawPassThrough(t *testing.T) {
	s := newTestStore(t)
	raw := json.RawMessage(`{"geographyName":"1","wirelineProviderEquals0":0.0125}`)

	require.NoError(t, s.Write(RankingKey("AL-1"), raw))

	data, err := s.ReadRaw(RankingKey("AL-1"))
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(data))

	var got map[string]any
	require.NoError(t, s.Read(RankingKey("AL-1"), &got))
	assert.Equal(t, json.Number("0.0125"), got["wirelineProviderEquals0"])
}

func TestWrite_MarshalsValues(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(StatsKey("AL-1", "7"), map[string]any{"speed": json.Number("3")}))

	data, err := s.ReadRaw(StatsKey("AL-1", "7"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"speed":3}`, string(data))
}

func TestWrite_RejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	err := s.Write(DistrictsKey(), json.RawMessage(`{"truncated":`))
	require.Error(t, err)

	ok, err := s.Exists(DistrictsKey())
	require.NoError(t, err)
	assert.False(t, ok, "nothing may be left behind on failure")
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write(DistrictsKey(), json.RawMessage(`[]`)))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "districts.json", entries[0].Name())
}

func TestRead_NotFound(t *testing.T) {
	s := newTestStore(t)

	var v any
	err := s.Read(ProvidersKey("TX-5"), &v)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))

	_, err = s.ReadRaw(ProvidersKey("TX-5"))
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestRead_Corrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(DistrictsKey()), []byte("{oops"), 0o644))

	var v any
	err := s.Read(DistrictsKey(), &v)
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrNotFound))
}
