package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CommandHandler is called with the command word and its arguments and returns the reply.
type CommandHandler func(command string, args []string) string

// ParseCommand splits "/rescore@grader_bot AAPL" into "/rescore" and ["AAPL"].
func ParseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:]
}

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// pollBackoff is the pause after a failed getUpdates call.
const pollBackoff = 5 * time.Second

// StartPolling long-polls for commands from the configured chat and replies with handler's answer.
// Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second}

	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[WARN] polling failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollBackoff):
			}
			continue
		}
		for _, update := range updates {
			offset = update.UpdateID + 1
			t.dispatch(update, handler)
		}
	}
	log.Println("[INFO] Telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.endpoint("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var result struct {
		OK          bool             `json:"ok"`
		Description string           `json:"description"`
		Result      []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates: %s", result.Description)
	}
	return result.Result, nil
}

func (t *TelegramNotifier) dispatch(update telegramUpdate, handler CommandHandler) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if chat := strconv.FormatInt(update.Message.Chat.ID, 10); chat != t.ChatID {
		log.Printf("[WARN] ignoring command from chat %s", chat)
		return
	}
	cmd, args := ParseCommand(update.Message.Text)
	if !strings.HasPrefix(cmd, "/") {
		return
	}
	log.Printf("[INFO] received command: %s %v", cmd, args)
	reply := handler(cmd, args)
	if reply == "" {
		return
	}
	if err := t.Send(reply); err != nil {
		log.Printf("[ERROR] send reply: %v", err)
	}
}
