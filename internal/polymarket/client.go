// Package polymarket reads active binary markets from the Gamma API and ask
// books from the CLOB API.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/arb"
	"github.com/hetulpatel/arbscanner/internal/logging"
	"github.com/hetulpatel/arbscanner/internal/models"
)

const (
	defaultGammaURL = "https://gamma-api.polymarket.com"
	defaultBookURL  = "https://clob.polymarket.com/book"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls optional overrides for the client. Zero values take defaults.
type Config struct {
	GammaURL     string
	BookURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff float64
	PageSize     int
	MaxMarkets   int
	HTTPClient   Doer
}

// Client fetches Gamma markets and CLOB books.
type Client struct {
	gammaURL   string
	bookURL    string
	httpClient Doer
	timeout    time.Duration
	maxRetries int
	backoff    float64
	pageSize   int
	maxMarkets int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Polymarket client with sane defaults.
func NewClient(cfg Config) *Client {
	gamma := cfg.GammaURL
	if gamma == "" {
		gamma = defaultGammaURL
	}
	book := cfg.BookURL
	if book == "" {
		book = defaultBookURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 2
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxMarkets := cfg.MaxMarkets
	if maxMarkets <= 0 {
		maxMarkets = 1000
	}
	return &Client{
		gammaURL:   strings.TrimRight(gamma, "/"),
		bookURL:    book,
		httpClient: httpClient,
		timeout:    timeout,
		maxRetries: retries,
		backoff:    backoff,
		pageSize:   pageSize,
		maxMarkets: maxMarkets,
		sleep:      sleepCtx,
	}
}

// ListActiveMarkets pages through /markets until an empty page or the
// MaxMarkets cap. Markets are normalized but not validated; callers decide
// what to do with non-binary entries.
func (c *Client) ListActiveMarkets(ctx context.Context) ([]models.Market, error) {
	var out []models.Market
	for offset := 0; len(out) < c.maxMarkets; offset += c.pageSize {
		page, err := c.listMarkets(ctx, c.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("polymarket list markets at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		for _, gm := range page {
			out = append(out, gm.normalize())
		}
	}
	if len(out) > c.maxMarkets {
		out = out[:c.maxMarkets]
	}

	logging.Infof("[polymarket] fetched %d active markets", len(out))
	for _, m := range out[:min(3, len(out))] {
		logging.Debugf("[polymarket] sample market [%s] %s", m.ID, m.Title)
	}
	return out, nil
}

func (c *Client) listMarkets(ctx context.Context, limit, offset int) ([]gammaMarket, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("active", "true")
	q.Set("closed", "false")

	var raw json.RawMessage
	if err := c.get(ctx, c.gammaURL+"/markets?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	return decodeMarketPage(raw)
}

// decodeMarketPage accepts either a bare array or an object with a data array.
func decodeMarketPage(raw json.RawMessage) ([]gammaMarket, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var page []gammaMarket
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode markets: %w", err)
		}
		return page, nil
	}
	var wrapped struct {
		Data []gammaMarket `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	return wrapped.Data, nil
}

// FetchAsks returns the ask side of tokenID's book, sorted ascending by
// price, with unparsable and non-positive levels dropped.
func (c *Client) FetchAsks(ctx context.Context, tokenID string) ([]arb.PriceLevel, error) {
	u, err := url.Parse(c.bookURL)
	if err != nil {
		return nil, fmt.Errorf("parse book url: %w", err)
	}
	q := u.Query()
	q.Set("token_id", tokenID)
	u.RawQuery = q.Encode()

	var book clobBook
	if err := c.get(ctx, u.String(), &book); err != nil {
		return nil, fmt.Errorf("polymarket book %s: %w", tokenID, err)
	}
	return convertAsks(book.Asks), nil
}

func convertAsks(levels []clobLevel) []arb.PriceLevel {
	out := make([]arb.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := decimal.NewFromString(strings.TrimSpace(lvl.Price))
		if err != nil || !price.IsPositive() {
			continue
		}
		size, err := decimal.NewFromString(strings.TrimSpace(lvl.Size))
		if err != nil || !size.IsPositive() {
			continue
		}
		out = append(out, arb.PriceLevel{Price: price, Size: size})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out
}

// get retries transport errors, 429 and 5xx up to maxRetries attempts,
// waiting backoff^attempt seconds between them.
func (c *Client) get(ctx context.Context, rawURL string, dst any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		status, err := c.attempt(ctx, rawURL, dst)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !shouldRetry(status) || attempt == c.maxRetries-1 {
			break
		}
		wait := c.backoffFor(attempt)
		logging.Warnf("[polymarket] request failed (attempt %d/%d): %v; retrying in %s",
			attempt+1, c.maxRetries, err, wait)
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, rawURL string, dst any) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return -1, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return resp.StatusCode, fmt.Errorf("polymarket API %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return -1, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func (c *Client) backoffFor(attempt int) time.Duration {
	return time.Duration(math.Pow(c.backoff, float64(attempt)) * float64(time.Second))
}

// shouldRetry treats status 0 as a transport error. Negative statuses mark
// local failures (bad request, undecodable body) that a retry will not fix.
func shouldRetry(status int) bool {
	if status == 0 {
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
