// Package address queries the BAN geocoder (api-adresse.data.gouv.fr) for
// address suggestions. Lookups are best-effort enrichment for the intake
// form: every failure degrades to "no suggestions".
package address

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"innocents/internal/domain"
)

// DefaultBaseURL is the public BAN endpoint.
const DefaultBaseURL = "https://api-adresse.data.gouv.fr"

// Queries at or below this length never hit the network.
const minQueryLen = 3

// Client searches the address database.
type Client struct {
	log     *zap.Logger
	baseURL string
	httpc   *http.Client
	limit   int
}

// NewClient returns a client for the given geocoder base URL. Empty baseURL
// means the public BAN endpoint.
func NewClient(log *zap.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
		limit:   5,
	}
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			Label    string `json:"label"`
			Name     string `json:"name"`
			Postcode string `json:"postcode"`
			City     string `json:"city"`
		} `json:"properties"`
	} `json:"features"`
}

// Search returns a lazy, single-use sequence of at most five suggestions.
// The request is issued on first pull. Queries of three characters or fewer
// yield nothing without a request, and any network or decode failure yields
// nothing; the caller cannot distinguish the two, which is the point.
func (c *Client) Search(ctx context.Context, query string) iter.Seq[domain.AddressSuggestion] {
	return func(yield func(domain.AddressSuggestion) bool) {
		if len(strings.TrimSpace(query)) <= minQueryLen {
			return
		}
		u := c.baseURL + "/search/?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(c.limit)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			c.log.Debug("address lookup request build failed", zap.Error(err))
			return
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			c.log.Debug("address lookup failed", zap.String("query", query), zap.Error(err))
			return
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			c.log.Debug("address lookup non-200", zap.Int("status", resp.StatusCode))
			return
		}
		var fc featureCollection
		if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
			c.log.Debug("address lookup decode failed", zap.Error(err))
			return
		}
		for i, f := range fc.Features {
			if i >= c.limit {
				return
			}
			s := domain.AddressSuggestion{
				Label:    f.Properties.Label,
				Name:     f.Properties.Name,
				Postcode: f.Properties.Postcode,
				City:     f.Properties.City,
			}
			if !yield(s) {
				return
			}
		}
	}
}
