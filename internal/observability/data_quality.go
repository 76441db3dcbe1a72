package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

type dqAlertState struct {
	mu   sync.Mutex
	last map[string]time.Time
}

var dqAlerts dqAlertState

// ReportDataQualityWarnings classifies input warnings (mostly unreadable
// component sizes met during distribution), counts them, logs a sample and
// optionally posts a rate-limited webhook alert.
func ReportDataQualityWarnings(ctx context.Context, log *logger.Logger, stage string, warnings []string, meta map[string]any) {
	if len(warnings) == 0 {
		return
	}
	stage = strings.TrimSpace(stage)
	if stage == "" {
		stage = "unknown"
	}
	if meta == nil {
		meta = map[string]any{}
	}
	fields := ctxutil.LogFields(ctx)
	for i := 0; i+1 < len(fields); i += 2 {
		if k, ok := fields[i].(string); ok {
			meta[k] = fields[i+1]
		}
	}

	issueCounts := map[string]int{}
	sampleWarnings := make([]string, 0, 3)
	for _, w := range warnings {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if len(sampleWarnings) < 3 {
			sampleWarnings = append(sampleWarnings, w)
		}
		issue := ClassifyWarning(w)
		incDataQuality(stage, issue)
		issueCounts[issue]++
	}
	if len(issueCounts) == 0 {
		return
	}

	if log != nil {
		log.Warn("data quality issue detected",
			"stage", stage,
			"issues", issueCounts,
			"sample_warnings", sampleWarnings,
			"meta", meta,
		)
	}
	sendDataQualityAlert(stage, issueCounts, sampleWarnings, meta, log)
}

// ClassifyWarning maps a warning message onto a small, fixed set of issue labels.
func ClassifyWarning(w string) string {
	lower := strings.ToLower(w)
	switch {
	case strings.Contains(lower, "identity key"):
		return "unreadable_identity"
	case strings.Contains(lower, "milestones"):
		return "unreadable_milestones"
	case strings.Contains(lower, "positive"):
		return "non_positive_size"
	case strings.Contains(lower, "size"):
		return "unparsable_size"
	default:
		return "other"
	}
}

func incDataQuality(stage, issue string) {
	metrics := Current()
	if metrics == nil {
		return
	}
	metrics.IncDataQuality(stage, issue)
}

func dataQualityAlertsEnabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("DATA_QUALITY_ALERTS_ENABLED")))
	if v == "" {
		return false
	}
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func dataQualityAlertWebhook() string {
	return strings.TrimSpace(os.Getenv("DATA_QUALITY_ALERT_WEBHOOK_URL"))
}

func dataQualityAlertMinInterval() time.Duration {
	raw := strings.TrimSpace(os.Getenv("DATA_QUALITY_ALERT_MIN_INTERVAL_SECONDS"))
	if raw == "" {
		return 5 * time.Minute
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(seconds) * time.Second
}

func sendDataQualityAlert(stage string, issueCounts map[string]int, samples []string, meta map[string]any, log *logger.Logger) {
	if !dataQualityAlertsEnabled() {
		return
	}
	webhook := dataQualityAlertWebhook()
	if webhook == "" || len(issueCounts) == 0 {
		return
	}
	dqAlerts.mu.Lock()
	if dqAlerts.last == nil {
		dqAlerts.last = map[string]time.Time{}
	}
	last := dqAlerts.last[stage]
	if !last.IsZero() && time.Since(last) < dataQualityAlertMinInterval() {
		dqAlerts.mu.Unlock()
		return
	}
	dqAlerts.last[stage] = time.Now()
	dqAlerts.mu.Unlock()

	payload := map[string]any{
		"title":           "Data quality issue",
		"stage":           stage,
		"issues":          issueCounts,
		"sample_warnings": samples,
		"meta":            meta,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		if log != nil {
			log.Warn("data quality alert request build failed", "error", err, "stage", stage)
		}
		return
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if log != nil {
			log.Warn("data quality alert post failed", "error", err, "stage", stage)
		}
		return
	}
	_ = resp.Body.Close()
	if log != nil {
		log.Info("data quality alert sent", "stage", stage, "status", resp.StatusCode)
	}
}
