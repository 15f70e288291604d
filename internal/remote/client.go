// Package remote is the adapter for the paged breed catalog API. It issues
// GET {base}/breeds?limit=&page= with the API key attached, applies an
// outbound token-bucket limit and a per-request timeout, and returns raw rows
// for the paging coordinator to normalise. It keeps no cursor state.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// HeaderAPIKey carries the API key. It is also sent as a query parameter of
// the same name.
const HeaderAPIKey = "x-api-key"

const maxErrorBody = 512

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://api.thedogapi.com/v1.
	BaseURL string
	// APIKey is optional; the public API serves unauthenticated requests at
	// a lower quota.
	APIKey string
	// ImagesBaseURL resolves reference_image_id into an image URL when the
	// row carries no image object. Empty disables resolution.
	ImagesBaseURL string
	// Timeout bounds each request (default 10s).
	Timeout time.Duration
	// RPS and Burst configure the outbound limiter. RPS <= 0 disables it.
	RPS   float64
	Burst int
	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Client fetches breed pages.
type Client struct {
	base    *url.URL
	apiKey  string
	images  string
	hc      *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, err
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("remote: base URL must be absolute")
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	var lim *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	return &Client{
		base:    base,
		apiKey:  opts.APIKey,
		images:  opts.ImagesBaseURL,
		hc:      hc,
		limiter: lim,
		log:     l.With().Str("component", "remote").Logger(),
	}, nil
}

// FetchPage requests one page of breeds. Pages are 1-indexed and passed to
// the API unchanged.
//
// Errors: *TransportError when no response arrived, *ServerError on a
// non-2xx status, ErrEmptyBody on an empty or null body, *DecodeError when
// the body is not a JSON array. Malformed rows inside the array are dropped.
func (c *Client) FetchPage(ctx context.Context, pageSize, page int) ([]BreedResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: "rate limit", Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(pageSize, page), nil)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Int("page", page).Msg("fetch failed")
		return nil, &TransportError{Op: "GET /breeds", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Int("page", page).
		Int("limit", pageSize).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("fetched page")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ServerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read body", Err: err}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrEmptyBody
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &DecodeError{Err: err}
	}
	rows := c.decodeRows(page, items)
	c.resolveImages(rows)
	return rows, nil
}

// decodeRows decodes each element on its own. Elements that do not decode
// into a breed are dropped.
func (c *Client) decodeRows(page int, items []json.RawMessage) []BreedResponse {
	rows := make([]BreedResponse, 0, len(items))
	for i, item := range items {
		var r BreedResponse
		if err := json.Unmarshal(item, &r); err != nil {
			c.log.Warn().Err(err).Int("page", page).Int("row", i).Msg("dropping malformed row")
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

func (c *Client) pageURL(pageSize, page int) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/breeds"
	q := u.Query()
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	if c.apiKey != "" {
		q.Set(HeaderAPIKey, c.apiKey)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// resolveImages fills a missing image URL from reference_image_id.
func (c *Client) resolveImages(rows []BreedResponse) {
	if c.images == "" {
		return
	}
	for i := range rows {
		r := &rows[i]
		if r.Image != nil && r.Image.URL != nil && *r.Image.URL != "" {
			continue
		}
		if r.ReferenceImageID == nil || *r.ReferenceImageID == "" {
			continue
		}
		u := strings.TrimRight(c.images, "/") + "/" + *r.ReferenceImageID + ".jpg"
		if r.Image == nil {
			r.Image = &Image{}
		}
		r.Image.URL = &u
	}
}
