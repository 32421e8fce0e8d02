package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString_Unmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want FlexString
	}{
		{`"01"`, "01"},
		{`1`, "1"},
		{`130077`, "130077"},
		{`null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			var s FlexString
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestFlexString_RejectsObjects(t *testing.T) {
	var s FlexString
	err := json.Unmarshal([]byte(`{"a":1}`), &s)
	assert.Error(t, err)
}

func TestDistrict_Decode(t *testing.T) {
	raw := `{"stateFips":"01","geographyId":"0101","stateAbbreviation":"AL","geographyName":"1","extra":true}`

	var d District
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.Equal(t, FlexString("01"), d.StateFips)
	assert.Equal(t, FlexString("0101"), d.GeographyID)
	assert.Equal(t, "AL-1", d.Name())
}

func TestSortDistricts_LexicographicName(t *testing.T) {
	districts := []District{
		{StateAbbreviation: "TX", GeographyName: "5"},
		{StateAbbreviation: "AL", GeographyName: "1"},
		{StateAbbreviation: "AL", GeographyName: "10"},
		{StateAbbreviation: "AL", GeographyName: "2"},
	}

	SortDistricts(districts)

	var names []string
	for _, d := range districts {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"AL-1", "AL-10", "AL-2", "TX-5"}, names)
}

func TestSortDistricts_Stable(t *testing.T) {
	districts := []District{
		{StateAbbreviation: "AK", GeographyName: "At Large", GeographyID: "first"},
		{StateAbbreviation: "AK", GeographyName: "At Large", GeographyID: "second"},
	}
	SortDistricts(districts)
	assert.Equal(t, FlexString("first"), districts[0].GeographyID)
}

func TestStateLookup(t *testing.T) {
	l := NewStateLookup([]District{
		{StateFips: "01", StateAbbreviation: "AL"},
		{StateFips: "01", StateAbbreviation: "AL"},
		{StateFips: "48", StateAbbreviation: "TX"},
	})

	abbr, ok := l.Abbreviation("48")
	assert.True(t, ok)
	assert.Equal(t, "TX", abbr)

	_, ok = l.Abbreviation("99")
	assert.False(t, ok)
	assert.Len(t, l, 2)
}

func TestRankingQueryProperties(t *testing.T) {
	props := RankingQueryProperties()
	require.Len(t, props, 9)
	assert.Equal(t, "wirelineproviderequals0", props[0])
	assert.Equal(t, "wirelineprovidergreaterthan8", props[8])
	assert.Equal(t, "wirelineProviderEquals0", RankingProperties[0], "source slice must not be modified")
}

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusQueued, "queued"},
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestScalarText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     any
		want   string
		scalar bool
	}{
		{"nil", nil, "", true},
		{"string", "At Large", "At Large", true},
		{"number", json.Number("0.0125"), "0.0125", true},
		{"float", 3.0, "3", true},
		{"int64", int64(130077), "130077", true},
		{"bool", true, "true", true},
		{"object", map[string]any{"a": 1}, "", false},
		{"array", []any{1}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ScalarText(tt.in)
			assert.Equal(t, tt.scalar, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
