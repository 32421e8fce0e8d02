package fetcher

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnvelope struct {
	Status  string          `json:"status"`
	Results json.RawMessage `json:"Results"`
}

func TestDecodeJSONObject(t *testing.T) {
	input := `{"status":"OK","Results":[{"stateFips":"01"}]}`

	obj, err := DecodeJSONObject[testEnvelope](strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "OK", obj.Status)
	assert.JSONEq(t, `[{"stateFips":"01"}]`, string(obj.Results))
}

func TestDecodeJSONObject_KeepsNumberText(t *testing.T) {
	input := `{"wirelineProviderEquals0":0.0125,"holdingCompanyNumber":130077}`

	obj, err := DecodeJSONObject[map[string]any](strings.NewReader(input))
	require.NoError(t, err)

	m := *obj
	assert.Equal(t, json.Number("0.0125"), m["wirelineProviderEquals0"])
	assert.Equal(t, json.Number("130077"), m["holdingCompanyNumber"])
}

func TestDecodeJSONObject_Invalid(t *testing.T) {
	_, err := DecodeJSONObject[testEnvelope](strings.NewReader(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json: decode object")
}

func TestDecodeJSONObject_EmptyInput(t *testing.T) {
	_, err := DecodeJSONObject[testEnvelope](strings.NewReader(""))
	require.Error(t, err)
}
