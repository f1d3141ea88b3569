// Package fcm is a minimal client for the FCM HTTP v1 send API.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prophive/push-dispatcher/internal/payload"
)

const maxResponseSize = 1 << 20

// Result is the provider's verdict for one send. Body always holds a JSON
// document: the provider's response when it parsed, or a synthesized error
// object when it did not.
type Result struct {
	StatusCode int
	Success    bool
	Body       json.RawMessage
}

// Client sends one bearer-authorized request per device token.
type Client struct {
	httpClient *http.Client
	endpoint   string
	projectID  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the FCM base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithTimeout sets the per-send HTTP timeout. A timed-out send surfaces as a
// transport error, which the dispatcher records as a normal per-recipient
// failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a client for the given Firebase project.
func NewClient(projectID string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   "https://fcm.googleapis.com",
		projectID:  projectID,
		logger:     logger.With("component", "fcm_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire types for the v1 messages:send request.

type sendRequest struct {
	Message message `json:"message"`
}

type message struct {
	Token        string            `json:"token"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *androidConfig    `json:"android,omitempty"`
	APNS         *apnsConfig       `json:"apns,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type androidConfig struct {
	Priority     string              `json:"priority"`
	Notification androidNotification `json:"notification"`
}

type androidNotification struct {
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	DefaultSound bool   `json:"default_sound"`
	ChannelID    string `json:"channel_id"`
}

type apnsConfig struct {
	Payload apnsPayload `json:"payload"`
}

type apnsPayload struct {
	APS aps `json:"aps"`
}

type aps struct {
	Badge int    `json:"badge"`
	Sound string `json:"sound"`
}

// Send posts one notification to a device token. A non-nil error means the
// request itself failed (transport error, timeout); a provider rejection is
// reported through Result with Success false.
func (c *Client) Send(ctx context.Context, bearerToken, deviceToken string, n payload.Notification, data map[string]string) (Result, error) {
	body, err := json.Marshal(sendRequest{
		Message: message{
			Token:        deviceToken,
			Notification: notification{Title: n.Title, Body: n.Body},
			Data:         data,
			Android: &androidConfig{
				Priority: "high",
				Notification: androidNotification{
					Icon:         "ic_notification",
					Color:        "#2196F3",
					DefaultSound: true,
					ChannelID:    "high_importance_channel",
				},
			},
			APNS: &apnsConfig{
				Payload: apnsPayload{APS: aps{Badge: 1, Sound: "default"}},
			},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshaling send request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.endpoint, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("sending to fcm: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	result := Result{
		StatusCode: resp.StatusCode,
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		Body:       parseBody(raw, resp),
	}

	if !result.Success {
		c.logger.Warn("fcm rejected send", "status", resp.StatusCode)
	}

	return result, nil
}

// parseBody keeps the provider's response when it is valid JSON and
// synthesizes an error object when it is not.
func parseBody(raw []byte, resp *http.Response) json.RawMessage {
	if json.Valid(raw) && len(raw) > 0 {
		return json.RawMessage(raw)
	}

	synthesized, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf("failed to parse FCM response: %s", resp.Status),
			"status":  resp.StatusCode,
		},
	})
	return synthesized
}
