package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnavailable covers transport failures, unexpected statuses and undecodable payloads.
	ErrUnavailable = errors.New("tmdb: provider unavailable")
	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("tmdb: provider timeout")
	// ErrNotFound is returned when a detail endpoint does not know the id.
	ErrNotFound = errors.New("tmdb: not found")
	// ErrInvalidQuery rejects empty searches and malformed ids before any request is made.
	ErrInvalidQuery = errors.New("tmdb: invalid query")
)

const maxResponseBody = 4 << 20

// Client defines the contract for querying the metadata provider.
type Client interface {
	Search(ctx context.Context, query string) (*MultiSearchResult, error)
	MovieDetails(ctx context.Context, id int64) (*MovieDetail, error)
	SeriesDetails(ctx context.Context, id int64) (*SeriesDetail, error)
	ExternalID(ctx context.Context, id int64, mediaType MediaType) (string, error)
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL     string
	AccessToken string
	Language    string
	Timeout     time.Duration
	Logger      *log.Logger
}

// HTTPClient implements Client over the provider's v3 REST API.
type HTTPClient struct {
	baseURL  *url.URL
	token    string
	language string
	timeout  time.Duration
	client   *http.Client
	logger   *log.Logger
}

// NewHTTPClient constructs a provider client. The bearer token is fixed for
// the client's lifetime.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, fmt.Errorf("tmdb access token is required")
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("tmdb timeout must be positive")
	}
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("tmdb url must be absolute: %q", opts.BaseURL)
	}
	language := opts.Language
	if language == "" {
		language = "en-US"
	}

	return &HTTPClient{
		baseURL:  parsed,
		token:    opts.AccessToken,
		language: language,
		timeout:  opts.Timeout,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   opts.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   opts.Timeout,
				ResponseHeaderTimeout: opts.Timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Search runs a free-text multi search. Results that are neither movies nor
// series (people) are dropped since they cannot be added to a watchlist.
func (c *HTTPClient) Search(ctx context.Context, query string) (*MultiSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", ErrInvalidQuery)
	}

	endpoint := c.baseURL.JoinPath("search", "multi")
	q := endpoint.Query()
	q.Set("query", query)
	q.Set("include_adult", "false")
	q.Set("language", c.language)
	endpoint.RawQuery = q.Encode()

	var payload MultiSearchResult
	if err := c.get(ctx, "search", endpoint, &payload); err != nil {
		return nil, err
	}
	payload.Results = filterSearchResults(payload.Results)
	return &payload, nil
}

// MovieDetails fetches the full movie record.
func (c *HTTPClient) MovieDetails(ctx context.Context, id int64) (*MovieDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: movie id %d", ErrInvalidQuery, id)
	}
	var payload MovieDetail
	if err := c.get(ctx, "movie details", c.detailURL("movie", id), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SeriesDetails fetches the full TV series record.
func (c *HTTPClient) SeriesDetails(ctx context.Context, id int64) (*SeriesDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: series id %d", ErrInvalidQuery, id)
	}
	var payload SeriesDetail
	if err := c.get(ctx, "series details", c.detailURL("tv", id), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ExternalID resolves the IMDb identifier for a title. Titles the provider
// does not know, or that have no IMDb cross-reference, yield "".
func (c *HTTPClient) ExternalID(ctx context.Context, id int64, mediaType MediaType) (string, error) {
	if !mediaType.Valid() {
		return "", fmt.Errorf("%w: media type %q", ErrInvalidQuery, mediaType)
	}
	if id <= 0 {
		return "", fmt.Errorf("%w: id %d", ErrInvalidQuery, id)
	}

	endpoint := c.baseURL.JoinPath(string(mediaType), strconv.FormatInt(id, 10), "external_ids")
	var payload externalIDs
	if err := c.get(ctx, "external ids", endpoint, &payload); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if payload.IMDBID == nil {
		return "", nil
	}
	return strings.TrimSpace(*payload.IMDBID), nil
}

func (c *HTTPClient) detailURL(kind string, id int64) *url.URL {
	endpoint := c.baseURL.JoinPath(kind, strconv.FormatInt(id, 10))
	q := endpoint.Query()
	q.Set("language", c.language)
	endpoint.RawQuery = q.Encode()
	return endpoint
}

func (c *HTTPClient) get(ctx context.Context, op string, endpoint *url.URL, dst interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %s: build request: %w", ErrUnavailable, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(dst); err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
			}
			return fmt.Errorf("%w: %s: decode response: %w", ErrUnavailable, op, err)
		}
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	default:
		c.logger.Printf("tmdb: unexpected status %d for %s", resp.StatusCode, op)
		return fmt.Errorf("%w: %s: upstream returned %d", ErrUnavailable, op, resp.StatusCode)
	}
}

func classify(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func filterSearchResults(results []SearchResult) []SearchResult {
	kept := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if !r.MediaType.Valid() || r.ID <= 0 {
			continue
		}
		if r.GenreIDs == nil {
			r.GenreIDs = []int32{}
		}
		kept = append(kept, r)
	}
	return kept
}
