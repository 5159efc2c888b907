package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPRanker asks a scoring service to rank candidates. It POSTs a
// RankRequest as JSON and expects a RankResponse back.
type HTTPRanker struct {
	url        string
	httpClient *http.Client
}

// NewHTTPRanker creates a ranker for the given endpoint URL.
func NewHTTPRanker(url string, timeout time.Duration) *HTTPRanker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRanker{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Rank implements Ranker.
func (h *HTTPRanker) Rank(ctx context.Context, req RankRequest) (RankResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return RankResponse{}, fmt.Errorf("marshal error: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return RankResponse{}, fmt.Errorf("request creation error: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return RankResponse{}, fmt.Errorf("HTTP error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return RankResponse{}, fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return RankResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}
	var out RankResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return RankResponse{}, fmt.Errorf("decode error: %w", err)
	}
	return out, nil
}
