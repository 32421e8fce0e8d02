// Package model defines the broadband map domain types and the run ledger records.
package model

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// FlexString holds a JSON scalar that the API sends as either a string or a
// number (stateFips, geographyId, holdingCompanyNumber). The text is kept as is.
type FlexString string

// UnmarshalJSON accepts a string, a number or null.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return eris.Wrap(err, "model: decode string")
		}
		*s = FlexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return eris.Wrapf(err, "model: expected string or number, got %s", b)
		}
		*s = FlexString(n)
	}
	return nil
}

// String returns the raw text.
func (s FlexString) String() string { return string(s) }

// District is a congressional district as listed by the geography endpoint.
type District struct {
	StateFips         FlexString `json:"stateFips"`
	GeographyID       FlexString `json:"geographyId"`
	StateAbbreviation string     `json:"stateAbbreviation"`
	GeographyName     FlexString `json:"geographyName"`
}

// Name returns the district identity key, e.g. "AL-1".
func (d District) Name() string {
	return DistrictName(d.StateAbbreviation, d.GeographyName.String())
}

// DistrictName builds the identity key used in cache file names and the summary.
func DistrictName(stateAbbreviation, geographyName string) string {
	return stateAbbreviation + "-" + geographyName
}

// SortDistricts stable-sorts districts by state abbreviation, then by
// geography name as a plain string, so "AL-10" sorts before "AL-2".
func SortDistricts(districts []District) {
	slices.SortStableFunc(districts, func(a, b District) int {
		if c := cmp.Compare(a.StateAbbreviation, b.StateAbbreviation); c != 0 {
			return c
		}
		return cmp.Compare(a.GeographyName, b.GeographyName)
	})
}

// StateLookup maps a state FIPS code to its postal abbreviation.
type StateLookup map[string]string

// NewStateLookup builds the lookup from a full district list.
func NewStateLookup(districts []District) StateLookup {
	l := make(StateLookup)
	for _, d := range districts {
		l[d.StateFips.String()] = d.StateAbbreviation
	}
	return l
}

// Abbreviation returns the abbreviation for fips.
func (l StateLookup) Abbreviation(fips string) (string, bool) {
	abbr, ok := l[fips]
	return abbr, ok
}

// RankingProperties are the counters kept per district, in summary column order.
var RankingProperties = []string{
	"wirelineProviderEquals0",
	"wirelineProviderGreaterThan1",
	"wirelineProviderGreaterThan2",
	"wirelineProviderGreaterThan3",
	"wirelineProviderGreaterThan4",
	"wirelineProviderGreaterThan5",
	"wirelineProviderGreaterThan6",
	"wirelineProviderGreaterThan7",
	"wirelineProviderGreaterThan8",
}

// RankingQueryProperties returns the lowercase property names the ranking
// endpoint expects in its properties parameter.
func RankingQueryProperties() []string {
	out := make([]string, len(RankingProperties))
	for i, p := range RankingProperties {
		out[i] = strings.ToLower(p)
	}
	return out
}

// ScalarText renders a decoded JSON scalar as text. Numbers keep their
// original digits when decoded as json.Number. A null yields "" and true;
// objects and arrays yield false.
func ScalarText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
