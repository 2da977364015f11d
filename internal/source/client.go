package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dispatchly/ghostload/internal/opportunity"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Client polls a load-board HTTP API for abandoned postings.
type Client struct {
	baseURL    string
	batchLimit int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a load-board client. batchLimit bounds the batch size per
// fetch; the board decides what fits under it.
func NewClient(baseURL string, batchLimit int, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		batchLimit: batchLimit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchBatch pulls the next batch of abandoned postings.
func (c *Client) FetchBatch(ctx context.Context) ([]opportunity.Raw, error) {
	endpoint := fmt.Sprintf("%s/v1/postings/abandoned", c.baseURL)

	params := url.Values{}
	params.Add("limit", strconv.Itoa(c.batchLimit))
	params.Add("order", "first_seen")

	requestURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ghostload/1.0")

	c.logger.Debug("fetching-postings",
		zap.String("url", requestURL),
		zap.Int("limit", c.batchLimit))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		FetchErrorsTotal.Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrSourceUnavailable, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var postings []posting
	err = json.Unmarshal(body, &postings)
	if err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	raws := make([]opportunity.Raw, 0, len(postings))
	for i := range postings {
		raws = append(raws, postings[i].toRaw())
	}

	PostingsFetchedTotal.Add(float64(len(raws)))

	c.logger.Debug("fetched-postings",
		zap.Int("count", len(raws)))

	return raws, nil
}
