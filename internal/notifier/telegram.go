package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pfrederiksen/exam-events/internal/exam"
)

const (
	telegramAPIBaseURL = "https://api.telegram.org/bot"
	telegramTimeout    = 10 * time.Second
	telegramInterval   = time.Second
)

// TelegramNotifier sends exam announcements to a Telegram chat or channel
type TelegramNotifier struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
	interval   time.Duration
}

// NewTelegramNotifier creates a Telegram notifier for one chat
func NewTelegramNotifier(botToken, chatID string) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram chat ID is required")
	}
	return &TelegramNotifier{
		botToken:   botToken,
		chatID:     chatID,
		baseURL:    telegramAPIBaseURL,
		httpClient: &http.Client{Timeout: telegramTimeout},
		interval:   telegramInterval,
	}, nil
}

// NewTelegramNotifierFromEnv reads TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID
func NewTelegramNotifierFromEnv() (*TelegramNotifier, error) {
	return NewTelegramNotifier(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
}

// Notify sends one message per record
func (n *TelegramNotifier) Notify(ctx context.Context, records []exam.Record) error {
	for i, rec := range records {
		if err := n.sendMessage(ctx, formatMessage(rec)); err != nil {
			return fmt.Errorf("sending %q: %w", rec.ExamName, err)
		}
		if i < len(records)-1 && n.interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.interval):
			}
		}
	}
	return nil
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  n.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	url := fmt.Sprintf("%s%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}

// formatMessage renders a record as Telegram HTML
func formatMessage(rec exam.Record) string {
	var msg strings.Builder

	msg.WriteString("📝 <b>New exam announced!</b>\n\n")
	msg.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(rec.ExamName)))
	msg.WriteString(fmt.Sprintf("🏛 %s\n", html.EscapeString(bodyLabel(rec.ConductingBody))))
	msg.WriteString(fmt.Sprintf("📅 Exam: %s\n", rec.ExamDate.Format("Mon, Jan 2, 2006")))

	switch {
	case rec.ApplicationStart != nil && rec.ApplicationEnd != nil:
		msg.WriteString(fmt.Sprintf("📝 Apply: %s to %s\n",
			rec.ApplicationStart.Format("Jan 2"), rec.ApplicationEnd.Format("Jan 2, 2006")))
	case rec.ApplicationEnd != nil:
		msg.WriteString(fmt.Sprintf("⏳ Apply by: %s\n", rec.ApplicationEnd.Format("Jan 2, 2006")))
	case rec.ApplicationStart != nil:
		msg.WriteString(fmt.Sprintf("📝 Applications open: %s\n", rec.ApplicationStart.Format("Jan 2, 2006")))
	}

	link := rec.OfficialLink
	if link == "" {
		link = rec.SourceURL
	}
	if link != "" {
		msg.WriteString(fmt.Sprintf("\n🔗 <a href=\"%s\">Official notice</a>\n", html.EscapeString(link)))
	}

	msg.WriteString("\n#SarkariExam #GovtJobs")
	if tag := bodyHashtag(rec.ConductingBody); tag != "" {
		msg.WriteString(" " + tag)
	}
	return msg.String()
}
