package summary

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/broadband-cli/internal/cache"
	"github.com/sells-group/broadband-cli/internal/model"
)

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.New(t.TempDir(), "jun2014")
	require.NoError(t, err)
	return s
}

// rankingFor builds a ranking entry whose counters are "<base>.<i>".
func rankingFor(base int) json.RawMessage {
	parts := []string{`"geographyName":"x"`}
	for i, p := range model.RankingProperties {
		parts = append(parts, fmt.Sprintf("%q:%d.%d", p, base, i))
	}
	return json.RawMessage("{" + strings.Join(parts, ",") + "}")
}

func seed(t *testing.T, c *cache.Store) {
	t.Helper()
	require.NoError(t, c.Write(cache.DistrictsKey(), json.RawMessage(`[
		{"stateFips":"48","geographyId":"4805","stateAbbreviation":"TX","geographyName":"5"},
		{"stateFips":"01","geographyId":"0101","stateAbbreviation":"AL","geographyName":"1"},
		{"stateFips":"01","geographyId":"0110","stateAbbreviation":"AL","geographyName":"10"}
	]`)))
	require.NoError(t, c.Write(cache.RankingKey("TX-5"), rankingFor(5)))
	require.NoError(t, c.Write(cache.RankingKey("AL-1"), rankingFor(1)))
	require.NoError(t, c.Write(cache.RankingKey("AL-10"), rankingFor(10)))
}

func TestCompile_Order(t *testing.T) {
	c := newTestCache(t)
	seed(t, c)

	rows, err := NewCompiler(c).Compile()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "AL-1", rows[0].District)
	assert.Equal(t, "AL-10", rows[1].District)
	assert.Equal(t, "TX-5", rows[2].District)

	require.Len(t, rows[0].Counters, 9)
	assert.Equal(t, "1.0", rows[0].Counters[0])
	assert.Equal(t, "10.8", rows[1].Counters[8])
}

func TestCompile_MissingRankingFile(t *testing.T) {
	c := newTestCache(t)
	seed(t, c)
	require.NoError(t, os.Remove(c.Path(cache.RankingKey("AL-10"))))

	_, err := NewCompiler(c).Compile()
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrMissingData))
	assert.Contains(t, err.Error(), "AL-10")
}

func TestCompile_MissingDistrictList(t *testing.T) {
	_, err := NewCompiler(newTestCache(t)).Compile()
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrMissingData))
}

func TestCompile_MissingCounter(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Write(cache.DistrictsKey(), json.RawMessage(`[
		{"stateFips":"01","geographyId":"0101","stateAbbreviation":"AL","geographyName":"1"}
	]`)))
	require.NoError(t, c.Write(cache.RankingKey("AL-1"), json.RawMessage(`{"wirelineProviderEquals0":0.1}`)))

	_, err := NewCompiler(c).Compile()
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrMissingData))
	assert.Contains(t, err.Error(), "wirelineProviderGreaterThan1")
}

func TestCompile_NullCounterIsBlank(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Write(cache.DistrictsKey(), json.RawMessage(`[
		{"stateFips":"01","geographyId":"0101","stateAbbreviation":"AL","geographyName":"1"}
	]`)))
	props := map[string]any{}
	for _, p := range model.RankingProperties {
		props[p] = json.Number("0")
	}
	props["wirelineProviderGreaterThan8"] = nil
	require.NoError(t, c.Write(cache.RankingKey("AL-1"), props))

	rows, err := NewCompiler(c).Compile()
	require.NoError(t, err)
	assert.Equal(t, "", rows[0].Counters[8])
	assert.Equal(t, "0", rows[0].Counters[0])
}

func TestWriteCSV(t *testing.T) {
	rows := []Row{
		{District: "AK-At Large", Counters: []string{"0", "1", "2", "3", "4", "5", "6", "7", "8"}},
		{District: "AL-1", Counters: []string{"0.5", "", "", "", "", "", "", "", "0.01"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header(), records[0])
	assert.Equal(t, "District", records[0][0])
	assert.Equal(t, "wirelineProviderGreaterThan8", records[0][9])
	assert.Equal(t, []string{"AK-At Large", "0", "1", "2", "3", "4", "5", "6", "7", "8"}, records[1])
	assert.Equal(t, "0.01", records[2][9])
}

func TestWriteCSV_NoRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Header(), ",")+"\n", buf.String())
}

func TestWriteCSVFile(t *testing.T) {
	c := newTestCache(t)
	seed(t, c)

	rows, err := NewCompiler(c).Compile()
	require.NoError(t, err)
	require.NoError(t, WriteCSVFile(c.SummaryPath(), rows))

	data, err := os.ReadFile(c.SummaryPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "AL-1,1.0,1.1,"))
	assert.True(t, strings.HasPrefix(lines[2], "AL-10,"))
	assert.True(t, strings.HasPrefix(lines[3], "TX-5,"))
}

func TestWriteXLSX(t *testing.T) {
	rows := []Row{
		{District: "AL-1", Counters: []string{"0", "1", "2", "3", "4", "5", "6", "7", "8"}},
	}
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, WriteXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)

	assert.Equal(t, "District", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "wirelineProviderEquals0", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "AL-1", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "8", sheet.Rows[1].Cells[9].String())
}
