package downloader

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/ohler55/ojg/jp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/broadband-cli/internal/bbmap"
	"github.com/sells-group/broadband-cli/internal/cache"
	"github.com/sells-group/broadband-cli/internal/model"
)

// rankingBuckets are visited in this order; the first mention of a district wins.
var rankingBuckets = []jp.Expr{
	jp.MustParseString("$.FirstTen[*]"),
	jp.MustParseString("$.myArea[*]"),
	jp.MustParseString("$.LastTen[*]"),
	jp.MustParseString("$.All[*]"),
}

// Aggregator fans a single ranking response out into one cache file per
// district mentioned in it.
type Aggregator struct {
	client bbmap.Client
	cache  *cache.Store
	lookup model.StateLookup
	log    *zap.Logger
}

// NewAggregator creates an Aggregator. lookup must be built from the full
// district list.
func NewAggregator(client bbmap.Client, store *cache.Store, lookup model.StateLookup) *Aggregator {
	return &Aggregator{
		client: client,
		cache:  store,
		lookup: lookup,
		log:    zap.L().With(zap.String("component", "ranking")),
	}
}

// Aggregate issues one ranking call anchored on anchor and writes every
// district entry whose ranking file does not exist yet. It returns the
// number of files written. The caller checks whether the anchor's own file
// was among them.
func (a *Aggregator) Aggregate(ctx context.Context, version string, anchor model.District) (int, error) {
	raw, err := a.client.Ranking(ctx, version, anchor.StateFips.String(), anchor.GeographyID.String())
	if err != nil {
		return 0, eris.Wrapf(err, "downloader: ranking for %s", anchor.Name())
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return 0, eris.Wrapf(err, "downloader: decode ranking for %s", anchor.Name())
	}

	written := 0
	for _, bucket := range rankingBuckets {
		for _, entry := range bucket.Get(root) {
			name, err := a.entryName(entry)
			if err != nil {
				return written, eris.Wrapf(err, "downloader: ranking for %s: bucket %s", anchor.Name(), bucket)
			}

			key := cache.RankingKey(name)
			ok, err := a.cache.Exists(key)
			if err != nil {
				return written, err
			}
			if ok {
				continue
			}
			if err := a.cache.Write(key, entry); err != nil {
				return written, err
			}
			written++
		}
	}

	a.log.Info("ranking aggregated",
		zap.String("anchor", anchor.Name()),
		zap.Int("written", written),
	)
	return written, nil
}

// entryName resolves a ranking entry to its district identity key.
func (a *Aggregator) entryName(entry any) (string, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return "", eris.Wrap(model.ErrMissingData, "ranking entry is not an object")
	}

	fips, ok := model.ScalarText(m["stateFips"])
	if !ok || fips == "" {
		return "", eris.Wrap(model.ErrMissingData, "ranking entry has no stateFips")
	}
	// An empty name is kept and yields "XX-".
	rawGeo, present := m["geographyName"]
	geo, ok := model.ScalarText(rawGeo)
	if !present || !ok {
		return "", eris.Wrapf(model.ErrMissingData, "ranking entry for state %s has no geographyName", fips)
	}

	abbr, ok := a.lookup.Abbreviation(fips)
	if !ok {
		return "", eris.Wrapf(model.ErrMissingData, "unknown stateFips %s", fips)
	}
	return model.DistrictName(abbr, geo), nil
}
