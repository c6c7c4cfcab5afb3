package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom)
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic"
	WebhookType string
	// Enabled controls whether alerts are sent
	Enabled bool
	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultAlertConfig returns config from environment variables.
func DefaultAlertConfig() AlertConfig {
	cfg := AlertConfig{
		WebhookURL:  os.Getenv("ALERT_WEBHOOK_URL"),
		WebhookType: os.Getenv("ALERT_WEBHOOK_TYPE"),
		Timeout:     10 * time.Second,
	}

	cfg.Enabled = cfg.WebhookURL != ""

	if cfg.WebhookType == "" {
		// Auto-detect from URL
		if strings.Contains(cfg.WebhookURL, "slack.com") {
			cfg.WebhookType = "slack"
		} else if strings.Contains(cfg.WebhookURL, "discord.com") {
			cfg.WebhookType = "discord"
		} else {
			cfg.WebhookType = "generic"
		}
	}

	return cfg
}

// Alerter sends alerts to configured webhooks.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
}

// NewAlerter creates a new alerter instance.
func NewAlerter(cfg AlertConfig) *Alerter {
	return &Alerter{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ReservoirAlert reports a reservoir whose reported level has dropped below
// its minimum allowable level.
type ReservoirAlert struct {
	ReservoirID       string
	CurrentLevel      uint64
	MinAllowableLevel uint64
	Capacity          uint64
	Timestamp         time.Time
}

// SendReservoirAlert notifies the configured webhook about a low reservoir.
func (a *Alerter) SendReservoirAlert(ctx context.Context, alert ReservoirAlert) error {
	if !a.cfg.Enabled {
		log.Printf("alerting: alerts disabled, skipping")
		return nil
	}

	var payload []byte
	var err error

	switch a.cfg.WebhookType {
	case "slack":
		payload, err = a.buildSlackPayload(alert)
	case "discord":
		payload, err = a.buildDiscordPayload(alert)
	default:
		payload, err = a.buildGenericPayload(alert)
	}

	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	log.Printf("alerting: sent low-level alert for reservoir %s", alert.ReservoirID)
	return nil
}

func fillPercent(alert ReservoirAlert) float64 {
	if alert.Capacity == 0 {
		return 0
	}
	return 100 * float64(alert.CurrentLevel) / float64(alert.Capacity)
}

func (a *Alerter) buildSlackPayload(alert ReservoirAlert) ([]byte, error) {
	emoji := ":warning:"
	if alert.CurrentLevel == 0 {
		emoji = ":x:"
	}

	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf("%s Reservoir Low: %s", emoji, alert.ReservoirID),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Level:*\n%d (%.1f%%)", alert.CurrentLevel, fillPercent(alert))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Minimum:*\n%d", alert.MinAllowableLevel)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Capacity:*\n%d", alert.Capacity)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildDiscordPayload(alert ReservoirAlert) ([]byte, error) {
	color := 16776960 // Yellow
	if alert.CurrentLevel == 0 {
		color = 16711680 // Red
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       fmt.Sprintf("Reservoir Low: %s", alert.ReservoirID),
				"description": fmt.Sprintf("Level %d is below the minimum of %d", alert.CurrentLevel, alert.MinAllowableLevel),
				"color":       color,
				"fields": []map[string]interface{}{
					{"name": "Level", "value": fmt.Sprintf("%d", alert.CurrentLevel), "inline": true},
					{"name": "Minimum", "value": fmt.Sprintf("%d", alert.MinAllowableLevel), "inline": true},
					{"name": "Fill", "value": fmt.Sprintf("%.1f%%", fillPercent(alert)), "inline": true},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildGenericPayload(alert ReservoirAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":          "reservoir_low_level",
		"reservoir_id":        alert.ReservoirID,
		"current_level":       alert.CurrentLevel,
		"min_allowable_level": alert.MinAllowableLevel,
		"capacity":            alert.Capacity,
		"fill_percent":        fillPercent(alert),
		"timestamp":           alert.Timestamp.Format(time.RFC3339),
	}

	return json.Marshal(payload)
}
