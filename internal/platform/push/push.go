// Package push sends fire-and-forget events to a Pusher-compatible channel
// service. Delivery failures are logged and never surfaced to the caller.
package push

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Client triggers events on named channels over the Pusher HTTP API.
type Client struct {
	appID   string
	key     string
	secret  string
	baseURL string
	http    *resty.Client
	logger  zerolog.Logger
}

type Config struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	cluster := cfg.Cluster
	if cluster == "" {
		cluster = "us2"
	}
	return &Client{
		appID:   cfg.AppID,
		key:     cfg.Key,
		secret:  cfg.Secret,
		baseURL: fmt.Sprintf("https://api-%s.pusher.com", cluster),
		http: resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		logger: logger,
	}
}

type eventBody struct {
	Name     string   `json:"name"`
	Channels []string `json:"channels"`
	Data     string   `json:"data"`
}

// Trigger publishes an event carrying the JSON-encoded payload. The error
// return exists for listeners that want to observe failures; callers on the
// mutation path ignore it.
func (c *Client) Trigger(ctx context.Context, channel, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	body, err := json.Marshal(eventBody{
		Name:     event,
		Channels: []string{channel},
		Data:     string(data),
	})
	if err != nil {
		return fmt.Errorf("encode push body: %w", err)
	}

	path := fmt.Sprintf("/apps/%s/events", c.appID)
	bodyMD5 := md5.Sum(body)
	query := fmt.Sprintf("auth_key=%s&auth_timestamp=%d&auth_version=1.0&body_md5=%s",
		c.key, time.Now().Unix(), hex.EncodeToString(bodyMD5[:]))

	toSign := fmt.Sprintf("POST\n%s\n%s", path, query)
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(toSign))
	signature := hex.EncodeToString(mac.Sum(nil))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(fmt.Sprintf("%s%s?%s&auth_signature=%s", c.baseURL, path, query, signature))
	if err != nil {
		c.logger.Warn().Err(err).Str("channel", channel).Str("event", event).Msg("push delivery failed")
		return err
	}
	if resp.IsError() {
		err := fmt.Errorf("push service returned status %d", resp.StatusCode())
		c.logger.Warn().Err(err).Str("channel", channel).Str("event", event).Msg("push delivery rejected")
		return err
	}

	c.logger.Debug().Str("channel", channel).Str("event", event).Msg("push delivered")
	return nil
}
