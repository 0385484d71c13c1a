package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atharvakonge/stocksim/internal/models"
)

var ErrNoQuote = errors.New("no quote returned")

// APIError is a non-2xx answer from the quote API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quote api: status %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is a 429 from the quote API.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// SearchHit is one match from the search endpoint.
type SearchHit struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Client talks to a Yahoo Finance compatible quote API. It does not retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger:    slog.Default(),
		userAgent: "stocksim/1.0",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuote `json:"result"`
	} `json:"quoteResponse"`
}

type yahooQuote struct {
	Symbol                     string  `json:"symbol"`
	LongName                   string  `json:"longName"`
	ShortName                  string  `json:"shortName"`
	FullExchangeName           string  `json:"fullExchangeName"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	RegularMarketOpen          float64 `json:"regularMarketOpen"`
	RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	MarketCap                  float64 `json:"marketCap"`
	TrailingPE                 float64 `json:"trailingPE"`
	DividendYield              float64 `json:"dividendYield"`
	FiftyTwoWeekHigh           float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow            float64 `json:"fiftyTwoWeekLow"`
}

func (q yahooQuote) stockInfo(requested string) models.StockInfo {
	symbol := q.Symbol
	if symbol == "" {
		symbol = requested
	}
	name := q.LongName
	if name == "" {
		name = q.ShortName
	}
	if name == "" {
		name = symbol
	}

	return models.StockInfo{
		Symbol:           symbol,
		Name:             name,
		Exchange:         q.FullExchangeName,
		CurrentPrice:     q.RegularMarketPrice,
		Change:           q.RegularMarketChange,
		ChangePercent:    q.RegularMarketChangePercent,
		PreviousClose:    q.RegularMarketPreviousClose,
		Open:             q.RegularMarketOpen,
		DayHigh:          q.RegularMarketDayHigh,
		DayLow:           q.RegularMarketDayLow,
		Volume:           q.RegularMarketVolume,
		MarketCap:        q.MarketCap,
		PERatio:          q.TrailingPE,
		DividendYield:    q.DividendYield,
		FiftyTwoWeekHigh: q.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  q.FiftyTwoWeekLow,
	}
}

// Quote fetches the live quote for one symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (models.StockInfo, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	var resp quoteResponse
	if err := c.get(ctx, "/v7/finance/quote", params, &resp); err != nil {
		return models.StockInfo{}, err
	}

	if len(resp.QuoteResponse.Result) == 0 {
		return models.StockInfo{}, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}
	return resp.QuoteResponse.Result[0].stockInfo(symbol), nil
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		LongName  string `json:"longname"`
		ShortName string `json:"shortname"`
		Exchange  string `json:"exchange"`
	} `json:"quotes"`
}

// Search returns NSE listed matches for q.
func (c *Client) Search(ctx context.Context, q string) ([]SearchHit, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("quotesCount", "10")
	params.Set("newsCount", "0")
	params.Set("enableFuzzyQuery", "false")
	params.Set("region", "IN")

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &resp); err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		if !strings.HasSuffix(q.Symbol, NSESuffix) {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		hits = append(hits, SearchHit{Symbol: q.Symbol, Name: name, Exchange: q.Exchange})
	}
	return hits, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("quote api request", "path", path, "params", params.Encode())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
