package pushover

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultURL = "https://api.pushover.net/1/messages.json"
	title      = "Ramu"

	// Pushover rejects messages longer than this.
	maxMessageLen = 1024
)

// Client forwards surfaced assistant errors as push notifications.
type Client struct {
	token      string
	userKey    string
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(token, userKey string, logger *slog.Logger) *Client {
	return NewClientWithURL(token, userKey, defaultURL, logger)
}

func NewClientWithURL(token, userKey, apiURL string, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		url:        apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		c.logger.Debug("pushover not configured, dropping alert")
		return nil
	}

	message = truncate(message, maxMessageLen)

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushover error: %s", resp.Status)
	}

	return nil
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
