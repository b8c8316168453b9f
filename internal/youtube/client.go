// Package youtube is a chat source backed by the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/DoyleJ11/party-queue/internal/ingest"
)

const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

const defaultPollingInterval = 5 * time.Second

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type videosResponse struct {
	Items []struct {
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		LiveStreamingDetails *struct {
			ActiveLiveChatID string `json:"activeLiveChatId"`
		} `json:"liveStreamingDetails"`
	} `json:"items"`
}

type messagesResponse struct {
	NextPageToken         string `json:"nextPageToken"`
	PollingIntervalMillis int    `json:"pollingIntervalMillis"`
	Items                 []struct {
		ID      string `json:"id"`
		Snippet struct {
			DisplayMessage string    `json:"displayMessage"`
			PublishedAt    time.Time `json:"publishedAt"`
		} `json:"snippet"`
		AuthorDetails struct {
			ChannelID   string `json:"channelId"`
			DisplayName string `json:"displayName"`
		} `json:"authorDetails"`
	} `json:"items"`
}

func (c *Client) ResolveVideo(ctx context.Context, videoID string) (ingest.VideoInfo, error) {
	q := url.Values{}
	q.Set("part", "snippet,liveStreamingDetails")
	q.Set("id", videoID)

	var resp videosResponse
	if err := c.get(ctx, "/videos", q, &resp); err != nil {
		return ingest.VideoInfo{}, err
	}
	if len(resp.Items) == 0 {
		return ingest.VideoInfo{}, fmt.Errorf("%w: %s", ingest.ErrVideoNotFound, videoID)
	}

	item := resp.Items[0]
	info := ingest.VideoInfo{Title: item.Snippet.Title}
	if info.Title == "" {
		info.Title = "Unknown"
	}
	if d := item.LiveStreamingDetails; d != nil && d.ActiveLiveChatID != "" {
		info.ChatID = d.ActiveLiveChatID
		info.IsLive = true
	}
	return info, nil
}

func (c *Client) PollMessages(ctx context.Context, chatID, pageToken string) (ingest.ChatPage, error) {
	q := url.Values{}
	q.Set("liveChatId", chatID)
	q.Set("part", "snippet,authorDetails")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var resp messagesResponse
	if err := c.get(ctx, "/liveChat/messages", q, &resp); err != nil {
		return ingest.ChatPage{}, err
	}

	page := ingest.ChatPage{
		NextPageToken:   resp.NextPageToken,
		PollingInterval: time.Duration(resp.PollingIntervalMillis) * time.Millisecond,
		Messages:        make([]ingest.ChatMessage, 0, len(resp.Items)),
	}
	if page.PollingInterval <= 0 {
		page.PollingInterval = defaultPollingInterval
	}
	for _, item := range resp.Items {
		name := item.AuthorDetails.DisplayName
		if name == "" {
			name = "Unknown"
		}
		page.Messages = append(page.Messages, ingest.ChatMessage{
			ID:          item.ID,
			AuthorID:    item.AuthorDetails.ChannelID,
			AuthorName:  name,
			Text:        item.Snippet.DisplayMessage,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return &ingest.UpstreamError{Message: err.Error(), Err: err}
	}

	res, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &ingest.UpstreamError{Message: err.Error(), Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return &ingest.UpstreamError{StatusCode: res.StatusCode, Message: err.Error(), Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return classify(res.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ingest.UpstreamError{StatusCode: res.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

// classify maps an API error body onto the ingestion error taxonomy. Every
// 403 that is not liveChatEnded is treated as a quota problem.
func classify(status int, body []byte) error {
	if status == http.StatusForbidden {
		if gjson.GetBytes(body, "error.errors.0.reason").String() == "liveChatEnded" {
			return ingest.ErrChatEnded
		}
		return ingest.ErrQuotaExceeded
	}

	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &ingest.UpstreamError{StatusCode: status, Message: msg}
}
