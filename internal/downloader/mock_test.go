package downloader

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/broadband-cli/internal/cache"
)

// --- bbmap.Client Mock ---

type mockClient struct {
	mock.Mock
}

func rawResult(args mock.Arguments) (json.RawMessage, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *mockClient) Districts(ctx context.Context) (json.RawMessage, error) {
	return rawResult(m.Called(ctx))
}

func (m *mockClient) Providers(ctx context.Context, version, stateFips, geographyID string) (json.RawMessage, error) {
	return rawResult(m.Called(ctx, version, stateFips, geographyID))
}

func (m *mockClient) ProviderStats(ctx context.Context, version, stateFips, geographyID, providerID string) (json.RawMessage, error) {
	return rawResult(m.Called(ctx, version, stateFips, geographyID, providerID))
}

func (m *mockClient) Ranking(ctx context.Context, version, stateFips, geographyID string) (json.RawMessage, error) {
	return rawResult(m.Called(ctx, version, stateFips, geographyID))
}

// --- fixtures ---

const testVersion = "jun2014"

// threeDistricts lists AL-1, AL-2 and TX-5; stateFips for Texas arrives as a number.
var threeDistricts = json.RawMessage(`[
	{"stateFips":"01","geographyId":"0101","stateAbbreviation":"AL","geographyName":"1"},
	{"stateFips":"01","geographyId":"0102","stateAbbreviation":"AL","geographyName":"2"},
	{"stateFips":48,"geographyId":"4805","stateAbbreviation":"TX","geographyName":"5"}
]`)

var emptyProviders = json.RawMessage(`{"allProviders":[]}`)

// rankingAll mentions every district exactly once.
var rankingAll = json.RawMessage(`{
	"FirstTen":[{"stateFips":"01","geographyName":"1","wirelineProviderEquals0":0.01}],
	"myArea":[{"stateFips":"01","geographyName":"2","wirelineProviderEquals0":0.02}],
	"LastTen":[],
	"All":[{"stateFips":"48","geographyName":"5","wirelineProviderEquals0":0.05}]
}`)

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.New(t.TempDir(), testVersion)
	require.NoError(t, err)
	return s
}

// happyClient answers every call for the three-district fixture; a single
// ranking call anchored on AL-1 covers all districts.
func happyClient() *mockClient {
	m := &mockClient{}
	m.On("Districts", mock.Anything).Return(threeDistricts, nil)
	m.On("Providers", mock.Anything, testVersion, mock.Anything, mock.Anything).Return(emptyProviders, nil)
	m.On("Ranking", mock.Anything, testVersion, "01", "0101").Return(rankingAll, nil)
	return m
}
