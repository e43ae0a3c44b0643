package alerting

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Config controls webhook alerting for scheduled jobs.
type Config struct {
	// WebhookURL is a Slack, Discord or custom endpoint. Empty disables alerts.
	WebhookURL string `yaml:"webhook_url"`

	// WebhookType selects the payload: "slack", "discord" or "generic".
	// Empty means detect from the URL.
	WebhookType string `yaml:"webhook_type"`

	// MinFailures is the failure count below which no alert is sent.
	MinFailures int           `yaml:"min_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Enabled reports whether a webhook is configured.
func (c Config) Enabled() bool { return c.WebhookURL != "" }

// DetectType infers the payload format from the webhook host.
func DetectType(url string) string {
	switch {
	case strings.Contains(url, "slack.com"):
		return "slack"
	case strings.Contains(url, "discord.com"), strings.Contains(url, "discordapp.com"):
		return "discord"
	}
	return "generic"
}

// Alerter sends job alerts to a webhook.
type Alerter struct {
	cfg    Config
	client *http.Client
}

func NewAlerter(cfg Config) *Alerter {
	if cfg.WebhookType == "" {
		cfg.WebhookType = DetectType(cfg.WebhookURL)
	}
	if cfg.MinFailures <= 0 {
		cfg.MinFailures = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Alerter{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// JobAlert summarises one run of a scheduled job over many items (users, for
// the portfolio snapshot job).
type JobAlert struct {
	JobName      string        `json:"job_name"`
	TotalCount   int           `json:"total_count"`
	SuccessCount int           `json:"success_count"`
	FailedCount  int           `json:"failed_count"`
	Duration     time.Duration `json:"-"`
	Failures     []ItemFailure `json:"failures"`
	Timestamp    time.Time     `json:"timestamp"`
}

// ItemFailure is one failed item of a job run.
type ItemFailure struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

// Send posts the alert when enough items failed. It returns nil without
// sending when alerting is disabled or below the threshold.
func (a *Alerter) Send(ctx context.Context, alert JobAlert) error {
	if !a.cfg.Enabled() {
		log.Debug().Str("job", alert.JobName).Msg("alerting: disabled, skipping")
		return nil
	}
	if alert.FailedCount < a.cfg.MinFailures {
		log.Debug().
			Int("failed", alert.FailedCount).
			Int("threshold", a.cfg.MinFailures).
			Msg("alerting: below threshold, skipping")
		return nil
	}

	payload, err := a.payload(alert)
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
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

	log.Info().Str("job", alert.JobName).Int("failed", alert.FailedCount).Msg("alerting: alert sent")
	return nil
}

func (a *Alerter) payload(alert JobAlert) ([]byte, error) {
	switch a.cfg.WebhookType {
	case "slack":
		return slackPayload(alert)
	case "discord":
		return discordPayload(alert)
	default:
		return genericPayload(alert)
	}
}

func failureList(alert JobAlert, bold string) string {
	var b strings.Builder
	for _, f := range alert.Failures {
		fmt.Fprintf(&b, "• %s%s%s: %s\n", bold, f.Item, bold, f.Error)
	}
	return b.String()
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

func slackPayload(alert JobAlert) ([]byte, error) {
	emoji := ":warning:"
	if alert.FailedCount == alert.TotalCount {
		emoji = ":x:"
	}
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("%s Job Alert: %s", emoji, alert.JobName)}},
		{Type: "section", Fields: []slackText{
			{Type: "mrkdwn", Text: fmt.Sprintf("*Status:*\n%d/%d failed", alert.FailedCount, alert.TotalCount)},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Success:*\n%d", alert.SuccessCount)},
			{Type: "mrkdwn", Text: fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
		}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*Failures:*\n" + failureList(alert, "*")}},
	}
	return json.Marshal(map[string]any{"blocks": blocks})
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
}

func discordPayload(alert JobAlert) ([]byte, error) {
	color := 0xFFFF00
	if alert.FailedCount == alert.TotalCount {
		color = 0xFF0000
	}
	embed := discordEmbed{
		Title:       "Job Alert: " + alert.JobName,
		Description: fmt.Sprintf("%d/%d items failed", alert.FailedCount, alert.TotalCount),
		Color:       color,
		Fields: []discordField{
			{Name: "Success", Value: fmt.Sprint(alert.SuccessCount), Inline: true},
			{Name: "Failed", Value: fmt.Sprint(alert.FailedCount), Inline: true},
			{Name: "Duration", Value: alert.Duration.Round(time.Millisecond).String(), Inline: true},
			{Name: "Failures", Value: failureList(alert, "**")},
		},
		Timestamp: alert.Timestamp.Format(time.RFC3339),
	}
	return json.Marshal(map[string]any{"embeds": []discordEmbed{embed}})
}

func genericPayload(alert JobAlert) ([]byte, error) {
	return json.Marshal(struct {
		AlertType  string `json:"alert_type"`
		DurationMs int64  `json:"duration_ms"`
		JobAlert
	}{
		AlertType:  "job_failure",
		DurationMs: alert.Duration.Milliseconds(),
		JobAlert:   alert,
	})
}
