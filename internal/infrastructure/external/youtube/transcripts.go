package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// Transcript error classes. Callers branch on these to decide whether a
// failure is permanent (no captions, private video) or worth retrying.
var (
	ErrNoTranscript     = errors.New("no captions available for this video")
	ErrVideoUnavailable = errors.New("video is private, deleted or region-restricted")
	ErrNetwork          = errors.New("transcript provider network failure")
	ErrRateLimited      = errors.New("transcript provider rate limited")
)

const retryMaxAttempts = 3

// retryInitialInterval is a variable so tests can shrink the backoff
var retryInitialInterval = 5 * time.Second

// Segment is one caption line with integer-second bounds
type Segment struct {
	StartSeconds int
	EndSeconds   int
	Text         string
}

// TranscriptFetcher retrieves timed-text captions for a video
type TranscriptFetcher struct {
	baseURL string
	client  *http.Client
}

// NewTranscriptFetcher creates a transcript fetcher
func NewTranscriptFetcher() *TranscriptFetcher {
	return NewTranscriptFetcherWithBase("https://www.youtube.com/api/timedtext")
}

// NewTranscriptFetcherWithBase creates a fetcher against a custom endpoint
// (used by tests)
func NewTranscriptFetcherWithBase(base string) *TranscriptFetcher {
	return &TranscriptFetcher{
		baseURL: base,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// timedTextResponse mirrors the provider's json3 caption format
type timedTextResponse struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			Text string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Fetch retrieves caption segments for a video. Segment times are floored
// to integer seconds. Rate-limit responses are retried with exponential
// backoff (5s initial, doubling, 3 attempts) before surfacing ErrRateLimited.
func (f *TranscriptFetcher) Fetch(ctx context.Context, videoID string) ([]Segment, error) {
	var segments []Segment

	attempt := func() error {
		segs, err := f.fetchOnce(ctx, videoID)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				return err // retriable
			}
			return backoff.Permanent(err)
		}
		segments = segs
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, retryMaxAttempts-1), ctx))
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func (f *TranscriptFetcher) fetchOnce(ctx context.Context, videoID string) ([]Segment, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", "en")
	params.Set("fmt", "json3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr net.Error
		var dnsErr *net.DNSError
		if errors.As(err, &netErr) || errors.As(err, &dnsErr) {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		return nil, fmt.Errorf("transcript fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoTranscript
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusGone:
		return nil, ErrVideoUnavailable
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("transcript provider returned status %d", resp.StatusCode)
	}

	var tt timedTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&tt); err != nil {
		return nil, fmt.Errorf("failed to decode timed text: %w", err)
	}

	segments := make([]Segment, 0, len(tt.Events))
	for _, ev := range tt.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.Text)
		}
		text := strings.TrimSpace(strings.ReplaceAll(sb.String(), "\n", " "))
		if text == "" {
			continue
		}
		start := int(ev.StartMs / 1000)
		end := int((ev.StartMs + ev.DurationMs) / 1000)
		if end < start {
			end = start
		}
		segments = append(segments, Segment{
			StartSeconds: start,
			EndSeconds:   end,
			Text:         text,
		})
	}

	if len(segments) == 0 {
		// An empty track means captions are absent or disabled.
		return nil, ErrNoTranscript
	}
	return segments, nil
}
