package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"feedwatch/internal/clock"
	"feedwatch/internal/types"
)

// Feed builds channel URLs and fetches them through a Client.
type Feed struct {
	client    *Client
	baseURL   string
	channelID string
	apiKey    string
	clock     clock.Clock
}

func NewFeed(client *Client, baseURL, channelID, apiKey string, clk clock.Clock) *Feed {
	return &Feed{
		client:    client,
		baseURL:   baseURL,
		channelID: channelID,
		apiKey:    apiKey,
		clock:     clock.OrReal(clk),
	}
}

// Latest fetches the most recent feed entry. The payload is returned raw so
// that shape validation stays with the caller.
func (f *Feed) Latest(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := f.client.FetchJSON(ctx, f.LatestURL(), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// History fetches up to results recent entries, oldest first.
func (f *Feed) History(ctx context.Context, results int) ([]types.Reading, error) {
	var body struct {
		Feeds []types.Reading `json:"feeds"`
	}
	if err := f.client.FetchJSON(ctx, f.HistoryURL(results), &body); err != nil {
		return nil, err
	}
	return body.Feeds, nil
}

// LatestURL is {base}/{channel}/feeds/last.json with a cache-busting t parameter.
func (f *Feed) LatestURL() string {
	q := url.Values{}
	if f.apiKey != "" {
		q.Set("api_key", f.apiKey)
	}
	q.Set("t", strconv.FormatInt(f.clock.Now().UnixMilli(), 10))
	return fmt.Sprintf("%s/%s/feeds/last.json?%s", f.baseURL, url.PathEscape(f.channelID), q.Encode())
}

// HistoryURL is {base}/{channel}/feeds.json?results=N.
func (f *Feed) HistoryURL(results int) string {
	q := url.Values{}
	q.Set("results", strconv.Itoa(results))
	if f.apiKey != "" {
		q.Set("api_key", f.apiKey)
	}
	q.Set("t", strconv.FormatInt(f.clock.Now().UnixMilli(), 10))
	return fmt.Sprintf("%s/%s/feeds.json?%s", f.baseURL, url.PathEscape(f.channelID), q.Encode())
}
