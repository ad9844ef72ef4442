package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ContentChecker screens listing text. It returns human-readable issues; none means the text is acceptable.
type ContentChecker interface {
	CheckText(ctx context.Context, text string) ([]string, error)
}

// ImageChecker screens a listing image reference.
type ImageChecker interface {
	CheckImage(ctx context.Context, imageURL string) ([]string, error)
}

// defaultBannedWords is a placeholder list. Production deployments configure MODERATION_BANNED_WORDS or an
// external API.
var defaultBannedWords = []string{"spam", "scam", "fraud", "xxx", "casino", "viagra"}

const inappropriateContentIssue = "Content contains inappropriate language"

// StaticListChecker flags text containing any deny-listed word as a case-insensitive substring.
// It is a placeholder: substring matching has false positives and no context.
type StaticListChecker struct {
	words []string
}

// NewStaticListChecker builds a checker over words, or the built-in list when words is empty.
func NewStaticListChecker(words []string) *StaticListChecker {
	if len(words) == 0 {
		words = defaultBannedWords
	}
	lower := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			lower = append(lower, w)
		}
	}
	return &StaticListChecker{words: lower}
}

// CheckText implements ContentChecker.
func (c *StaticListChecker) CheckText(_ context.Context, text string) ([]string, error) {
	text = strings.ToLower(text)
	for _, w := range c.words {
		if strings.Contains(text, w) {
			return []string{inappropriateContentIssue}, nil
		}
	}
	return nil, nil
}

// APIChecker delegates text screening to an external moderation endpoint. The endpoint receives
// {"text": "..."} and answers {"flagged": bool, "categories": ["..."]}.
type APIChecker struct {
	endpoint string
	client   *http.Client
}

// NewAPIChecker creates a checker for endpoint with a request timeout.
func NewAPIChecker(endpoint string, timeout time.Duration) *APIChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &APIChecker{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type apiCheckRequest struct {
	Text string `json:"text"`
}

type apiCheckResponse struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories"`
}

// CheckText implements ContentChecker.
func (c *APIChecker) CheckText(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(apiCheckRequest{Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moderation api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("moderation api: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out apiCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("moderation api: decode: %w", err)
	}
	if !out.Flagged {
		return nil, nil
	}
	if len(out.Categories) == 0 {
		return []string{inappropriateContentIssue}, nil
	}
	return []string{inappropriateContentIssue + " (" + strings.Join(out.Categories, ", ") + ")"}, nil
}

// URLShapeImageChecker only checks that the image reference is an absolute http or https URL.
// It does not fetch the image or inspect its dimensions or content type.
type URLShapeImageChecker struct{}

// CheckImage implements ImageChecker.
func (URLShapeImageChecker) CheckImage(_ context.Context, imageURL string) ([]string, error) {
	if imageURL == "" {
		return nil, nil
	}
	u, err := url.Parse(imageURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []string{"Image URL must be an absolute http or https URL"}, nil
	}
	return nil, nil
}
