package ads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sparkdata/sparkdata-go/internal/models"
	"github.com/sparkdata/sparkdata-go/internal/utils"
)

// HTTPClient abstracts the transport so tests can swap in fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// UpstreamError carries the Ads API status and body through to the
// caller unchanged; the client does not retry business failures.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ads api: upstream status %d: %s", e.Status, e.Body)
}

// Client issues Google Ads searchStream queries.
type Client struct {
	httpc          HTTPClient
	baseURL        string
	developerToken string
	backoff        utils.Backoff
}

func NewClient(httpc HTTPClient, baseURL, developerToken string) *Client {
	return &Client{
		httpc:          httpc,
		baseURL:        baseURL,
		developerToken: developerToken,
		backoff:        utils.NewBackoff(100*time.Millisecond, 2),
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

// streamChunk mirrors one element of the searchStream response array.
// Missing metric keys decode to zero; that default is part of the
// normalizer's contract.
type streamChunk struct {
	Results []struct {
		Segments struct {
			Date string `json:"date"`
		} `json:"segments"`
		Metrics struct {
			Impressions int64   `json:"impressions"`
			Clicks      int64   `json:"clicks"`
			CostMicros  int64   `json:"cost_micros"`
			Conversions float64 `json:"conversions"`
		} `json:"metrics"`
	} `json:"results"`
}

// SearchStream runs the performance query for a customer over the
// given date range and hands each response chunk to fn as it is
// decoded. Only the chunk currently being decoded is held in memory,
// so unbounded result sets stream through without buffering. Transport
// failures are retried with exponential backoff; a non-2xx response is
// returned as *UpstreamError without retrying.
func (c *Client) SearchStream(ctx context.Context, accessToken, customerID, dateRange string, fn func([]models.RawMetricRow) error) error {
	query := fmt.Sprintf(`
		SELECT
		  customer.descriptive_name,
		  segments.date,
		  metrics.impressions,
		  metrics.clicks,
		  metrics.cost_micros,
		  metrics.conversions
		FROM customer
		WHERE segments.date DURING %s
		ORDER BY segments.date DESC`, dateRange)

	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return eris.Wrap(err, "ads: marshal query")
	}
	url := fmt.Sprintf("%s/v17/customers/%s/googleAds:searchStream", c.baseURL, customerID)

	var resp *http.Response
	err = c.backoff.Do(func(int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "ads: build request")
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("developer-token", c.developerToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err = c.httpc.Do(req)
		return err
	})
	if err != nil {
		return eris.Wrap(err, "ads: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Status: resp.StatusCode, Body: string(b)}
	}

	return decodeStream(resp.Body, fn)
}

// decodeStream walks the top-level JSON array one chunk at a time.
func decodeStream(r io.Reader, fn func([]models.RawMetricRow) error) error {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "ads: read stream")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return eris.New("ads: response is not a JSON array")
	}
	for dec.More() {
		var chunk streamChunk
		if err := dec.Decode(&chunk); err != nil {
			return eris.Wrap(err, "ads: decode chunk")
		}
		rows := make([]models.RawMetricRow, 0, len(chunk.Results))
		for _, res := range chunk.Results {
			rows = append(rows, models.RawMetricRow{
				Date:        res.Segments.Date,
				Impressions: res.Metrics.Impressions,
				Clicks:      res.Metrics.Clicks,
				CostMicros:  res.Metrics.CostMicros,
				Conversions: res.Metrics.Conversions,
			})
		}
		if err := fn(rows); err != nil {
			return err
		}
	}
	return nil
}
