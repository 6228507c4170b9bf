package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Ensure SlackSink implements Sink.
var _ Sink = (*SlackSink)(nil)

// SlackSink posts run summaries to a Slack channel via Incoming Webhooks.
type SlackSink struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackSink returns a sink that posts summaries to Slack.
func NewSlackSink(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackSink {
	return &SlackSink{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

// Report sends one message summarizing the run. Honors a single Retry-After
// on 429 before giving up.
func (s *SlackSink) Report(sum Summary) error {
	text := fmt.Sprintf(
		"*Job Radar run %s* (%s, profile `%s`)\nleads %d · scraped %d · new %d · refreshed %d · analyzed %d · deferred %d\nsnapshot now holds %d jobs, %d scrape failures",
		sum.RunID, sum.Trigger, sum.ProfileID,
		sum.LeadsFound, sum.Scraped, sum.NewJobs, sum.Refreshed, sum.Analyzed, sum.Deferred,
		sum.SnapshotJobs, len(sum.Failures),
	)

	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()
		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}
