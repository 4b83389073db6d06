package profileapi

import (
	"aixbot/config"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// maxStartAttempts bounds the rate-limit retry loop on the start endpoint.
	maxStartAttempts = 5
)

// Client talks to the local browser-profile orchestrator API. The orchestrator
// starts and stops remote browser instances keyed by account id and hands back
// a CDP debug endpoint on start.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// envelope is the orchestrator's JSON response wrapper.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type startData struct {
	DebugPort string `json:"debug_port"`
}

func NewClient(logger *zap.Logger, cfg *config.Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.ProfileAPI.Timeout,
		},
		baseURL: strings.TrimRight(cfg.ProfileAPI.BaseURL, "/"),
		apiKey:  cfg.ProfileAPI.APIKey,
		sleep:   time.Sleep,
	}
}

// Start launches the browser profile for the given account id and returns the
// debug endpoint as host:port. A bare port in the response is normalized to
// 127.0.0.1. Retries with linearly increasing backoff only when the API
// reports a rate limit; any other failure aborts immediately.
func (c *Client) Start(ctx context.Context, accountID string) (string, error) {
	reqURL := fmt.Sprintf("%s/api/v1/browser/start?user_id=%s", c.baseURL, url.QueryEscape(accountID))

	for attempt := 0; attempt < maxStartAttempts; attempt++ {
		env, err := c.get(ctx, reqURL)
		if err != nil {
			return "", fmt.Errorf("start profile %s: %w", accountID, err)
		}

		if env.Code == 0 {
			var data startData
			if err := json.Unmarshal(env.Data, &data); err != nil || data.DebugPort == "" {
				return "", fmt.Errorf("start profile %s: response has no debug_port", accountID)
			}
			return normalizeAddr(data.DebugPort), nil
		}

		if strings.Contains(env.Msg, "Too many request") {
			if attempt == maxStartAttempts-1 {
				break
			}
			wait := time.Duration(attempt+1) * 2 * time.Second
			c.logger.Warn("profile API rate limited, backing off",
				zap.String("account", accountID),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt+1),
			)
			c.sleep(wait)
			continue
		}

		return "", fmt.Errorf("start profile %s: API error: %s", accountID, env.Msg)
	}

	return "", fmt.Errorf("start profile %s: rate limited after %d attempts", accountID, maxStartAttempts)
}

// Stop shuts down the browser profile for the given account id.
func (c *Client) Stop(ctx context.Context, accountID string) error {
	reqURL := fmt.Sprintf("%s/api/v1/browser/stop?user_id=%s", c.baseURL, url.QueryEscape(accountID))

	env, err := c.get(ctx, reqURL)
	if err != nil {
		return fmt.Errorf("stop profile %s: %w", accountID, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("stop profile %s: API error: %s", accountID, env.Msg)
	}
	return nil
}

func (c *Client) get(ctx context.Context, reqURL string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

// normalizeAddr turns a bare debug port into a loopback host:port address.
func normalizeAddr(debugPort string) string {
	if strings.Contains(debugPort, ":") {
		return debugPort
	}
	return "127.0.0.1:" + debugPort
}
