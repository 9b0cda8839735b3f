package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tubechat/tubechat/pkg/config"
)

// VideoMeta is the metadata surface the pipelines need from the provider
type VideoMeta struct {
	VideoID         string
	ChannelID       string
	Title           string
	Description     string
	DurationSeconds int
	PublishedAt     time.Time
}

// ChannelMeta identifies a resolved channel
type ChannelMeta struct {
	ChannelID string
	Title     string
	Handle    string
}

// MetadataClient talks to the video metadata provider (YouTube Data API v3)
type MetadataClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewMetadataClient creates a metadata client from config
func NewMetadataClient(cfg *config.YouTubeConfig) *MetadataClient {
	base := cfg.BaseURL
	if base == "" {
		base = "https://www.googleapis.com/youtube/v3"
	}
	return &MetadataClient{
		apiKey:  cfg.APIKey,
		baseURL: base,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			CustomURL   string `json:"customUrl"`
			Description string `json:"description"`
		} `json:"snippet"`
	} `json:"items"`
}

type searchListResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			ChannelID   string    `json:"channelId"`
			Title       string    `json:"title"`
			Description string    `json:"description"`
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			ChannelID   string    `json:"channelId"`
			Title       string    `json:"title"`
			Description string    `json:"description"`
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// ResolveHandle resolves a channel handle (e.g. "@veritasium") to its id
func (c *MetadataClient) ResolveHandle(ctx context.Context, handle string) (*ChannelMeta, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("forHandle", strings.TrimPrefix(handle, "@"))
	params.Set("key", c.apiKey)

	var out channelListResponse
	if err := c.get(ctx, "/channels", params, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("channel handle %q not found", handle)
	}
	item := out.Items[0]
	return &ChannelMeta{
		ChannelID: item.ID,
		Title:     item.Snippet.Title,
		Handle:    item.Snippet.CustomURL,
	}, nil
}

// GetChannel fetches channel metadata by id
func (c *MetadataClient) GetChannel(ctx context.Context, channelID string) (*ChannelMeta, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", channelID)
	params.Set("key", c.apiKey)

	var out channelListResponse
	if err := c.get(ctx, "/channels", params, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("channel %q not found", channelID)
	}
	item := out.Items[0]
	return &ChannelMeta{
		ChannelID: item.ID,
		Title:     item.Snippet.Title,
		Handle:    item.Snippet.CustomURL,
	}, nil
}

// ListChannelVideos lists a channel's videos in reverse-chronological order,
// capped at limit
func (c *MetadataClient) ListChannelVideos(ctx context.Context, channelID string, limit int) ([]VideoMeta, error) {
	return c.listVideos(ctx, channelID, nil, limit)
}

// ListVideosPublishedAfter lists channel videos newer than a point in time,
// newest first
func (c *MetadataClient) ListVideosPublishedAfter(ctx context.Context, channelID string, after time.Time, limit int) ([]VideoMeta, error) {
	return c.listVideos(ctx, channelID, &after, limit)
}

func (c *MetadataClient) listVideos(ctx context.Context, channelID string, after *time.Time, limit int) ([]VideoMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("type", "video")
	params.Set("order", "date")
	params.Set("maxResults", strconv.Itoa(min(limit, 50)))
	params.Set("key", c.apiKey)
	if after != nil {
		params.Set("publishedAfter", after.UTC().Format(time.RFC3339))
	}

	var out searchListResponse
	if err := c.get(ctx, "/search", params, &out); err != nil {
		return nil, err
	}

	videos := make([]VideoMeta, 0, len(out.Items))
	for _, item := range out.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, VideoMeta{
			VideoID:     item.ID.VideoID,
			ChannelID:   item.Snippet.ChannelID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
		})
		if len(videos) == limit {
			break
		}
	}
	return videos, nil
}

// GetVideo fetches full metadata for one video, including duration
func (c *MetadataClient) GetVideo(ctx context.Context, videoID string) (*VideoMeta, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", videoID)
	params.Set("key", c.apiKey)

	var out videoListResponse
	if err := c.get(ctx, "/videos", params, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("video %q not found", videoID)
	}
	item := out.Items[0]
	return &VideoMeta{
		VideoID:         item.ID,
		ChannelID:       item.Snippet.ChannelID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		DurationSeconds: parseISODuration(item.ContentDetails.Duration),
		PublishedAt:     item.Snippet.PublishedAt,
	}, nil
}

func (c *MetadataClient) get(ctx context.Context, path string, params url.Values, v interface{}) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("metadata provider returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// parseISODuration converts an ISO-8601 duration (PT1H2M3S) to seconds
func parseISODuration(s string) int {
	s = strings.TrimPrefix(s, "PT")
	total := 0
	num := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
		case r == 'H':
			total += num * 3600
			num = 0
		case r == 'M':
			total += num * 60
			num = 0
		case r == 'S':
			total += num
			num = 0
		default:
			num = 0
		}
	}
	return total
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
