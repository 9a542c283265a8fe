package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

var errNotifierMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier posts events at or above a minimum severity to a Telegram chat.
type Notifier struct {
	api         botAPI
	chatID      string
	minSeverity domain.Severity
	logger      *slog.Logger
}

var _ ports.EventSink = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty minSeverity
// forwards every event, unscored listing events included.
func NewNotifier(apiURL, botToken, chatID string, minSeverity domain.Severity, logger *slog.Logger) *Notifier {
	return &Notifier{
		api:         newBotAPI(apiURL, botToken, &http.Client{Timeout: 5 * time.Second}),
		chatID:      chatID,
		minSeverity: minSeverity,
		logger:      logger,
	}
}

// Emit sends a short message for ev unless it is below the threshold.
func (n *Notifier) Emit(ctx context.Context, ev domain.Event) error {
	if n.api.token == "" || n.chatID == "" {
		return errNotifierMisconfigured
	}
	if ev.Severity.Rank() < n.minSeverity.Rank() {
		return nil
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatEvent(ev))
	form.Set("disable_web_page_preview", "true")

	if err := n.api.call(ctx, "sendMessage", form, nil); err != nil {
		return fmt.Errorf("notify %s: %w", ev.ID, err)
	}
	if n.logger != nil {
		n.logger.Debug("event notified", "event", ev.ID, "severity", ev.Severity)
	}
	return nil
}

func formatEvent(ev domain.Event) string {
	var b strings.Builder
	severity := string(ev.Severity)
	if severity == "" {
		severity = "new"
	}
	fmt.Fprintf(&b, "[%s] %s: %s\n", strings.ToUpper(severity), ev.Kind, ev.Title)
	if ev.Link != "" {
		b.WriteString(ev.Link)
		b.WriteString("\n")
	}
	if len(ev.Reasons) > 0 {
		fmt.Fprintf(&b, "score %d: %s\n", ev.Score, strings.Join(ev.Reasons, ", "))
	}
	for _, key := range []string{"country", "source_group", "discovered"} {
		if v := ev.Attributes[key]; v != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, v)
		}
	}
	return strings.TrimSpace(b.String())
}
