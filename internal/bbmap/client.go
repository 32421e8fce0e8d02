// Package bbmap provides a client for the National Broadband Map REST API.
package bbmap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/broadband-cli/internal/fetcher"
	"github.com/sells-group/broadband-cli/internal/model"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://www.broadbandmap.gov/broadbandmap/"

const statusOK = "OK"

// Client defines the broadband map operations used by the downloader.
// Every method issues exactly one request and returns the envelope's
// Results payload verbatim.
type Client interface {
	// Districts lists every congressional district.
	Districts(ctx context.Context) (json.RawMessage, error)
	// Providers lists the providers serving one district.
	Providers(ctx context.Context, version, stateFips, geographyID string) (json.RawMessage, error)
	// ProviderStats returns one provider's statistics within a district.
	ProviderStats(ctx context.Context, version, stateFips, geographyID, providerID string) (json.RawMessage, error)
	// Ranking returns the wireline provider ranking anchored on a district.
	Ranking(ctx context.Context, version, stateFips, geographyID string) (json.RawMessage, error)
}

// APIError is returned when the envelope status is not "OK", whatever the
// HTTP status of the response that carried it.
type APIError struct {
	Endpoint string
	Status   string
	Message  string
	// HTTPStatus is 0 when the envelope came with a 200 response.
	HTTPStatus int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bbmap: %s: status %q", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("bbmap: %s: %s", e.Endpoint, e.Message)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"Results"`
}

// IsErrorEnvelope reports whether body decodes as an envelope whose status
// is set and is not "OK". It is meant for fetcher.HTTPOptions.Terminal.
func IsErrorEnvelope(body []byte) bool {
	_, ok := errorEnvelope(body)
	return ok
}

func errorEnvelope(body []byte) (*envelope, bool) {
	env, err := fetcher.DecodeJSONObject[envelope](bytes.NewReader(body))
	if err != nil || env.Status == "" || env.Status == statusOK {
		return nil, false
	}
	return env, true
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom API root (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

type httpClient struct {
	baseURL string
	fetch   fetcher.Fetcher
	log     *zap.Logger
}

// NewClient creates a client that issues requests through f.
func NewClient(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		fetch:   f,
		log:     zap.L().With(zap.String("component", "bbmap")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Districts(ctx context.Context) (json.RawMessage, error) {
	u, err := c.endpoint("format=json&all=true", "geography", "congdistrict")
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "districts", u)
}

func (c *httpClient) Providers(ctx context.Context, version, stateFips, geographyID string) (json.RawMessage, error) {
	u, err := c.endpoint("format=json",
		"provider", version, "providers", "state", stateFips, "population", "congdistrict", geographyID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "providers", u)
}

func (c *httpClient) ProviderStats(ctx context.Context, version, stateFips, geographyID, providerID string) (json.RawMessage, error) {
	u, err := c.endpoint("format=json",
		"provider", version, "stats", "state", stateFips, "population", "congdistrict", geographyID, providerID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "provider stats", u)
}

func (c *httpClient) Ranking(ctx context.Context, version, stateFips, geographyID string) (json.RawMessage, error) {
	query := "format=json&order=asc&properties=" + strings.Join(model.RankingQueryProperties(), ",")
	u, err := c.endpoint(query,
		"almanac", version, "rankby", "state", stateFips, "population",
		"wirelineprovidergreaterthan1", "congdistrict", "id", geographyID)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, "ranking", u)
}

// endpoint joins path segments onto the base URL and attaches rawQuery as is.
func (c *httpClient) endpoint(rawQuery string, segments ...string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", eris.Wrapf(err, "bbmap: parse base url %q", c.baseURL)
	}
	u := base.JoinPath(segments...)
	u.RawQuery = rawQuery
	return u.String(), nil
}

func (c *httpClient) get(ctx context.Context, name, u string) (json.RawMessage, error) {
	c.log.Info("fetching", zap.String("endpoint", name), zap.String("url", u))

	body, err := c.fetch.Download(ctx, u)
	if err != nil {
		var se *fetcher.StatusError
		if errors.As(err, &se) {
			if env, ok := errorEnvelope(se.Body); ok {
				return nil, &APIError{Endpoint: name, Status: env.Status, Message: env.Message, HTTPStatus: se.Status}
			}
		}
		return nil, eris.Wrapf(err, "bbmap: %s request failed", name)
	}
	defer body.Close() //nolint:errcheck

	env, err := fetcher.DecodeJSONObject[envelope](body)
	if err != nil {
		return nil, eris.Wrapf(err, "bbmap: %s: decode envelope", name)
	}
	if env.Status != statusOK {
		return nil, &APIError{Endpoint: name, Status: env.Status, Message: env.Message}
	}
	if len(env.Results) == 0 {
		return nil, eris.Errorf("bbmap: %s: response has no Results", name)
	}
	return env.Results, nil
}
