package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/sidekick/internal/config"
)

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// PushNotification sends a message to the user's devices via Pushover.
type PushNotification struct {
	client   *http.Client
	endpoint string
	token    string
	user     string
}

// NewPushNotification builds the send_push_notification tool. Returns nil
// when no token is configured.
func NewPushNotification(cfg config.PushConfig) *PushNotification {
	if cfg.Token == "" || cfg.User == "" {
		return nil
	}
	return &PushNotification{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: pushoverEndpoint,
		token:    cfg.Token,
		user:     cfg.User,
	}
}

func (t *PushNotification) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "send_push_notification",
		Desc: "Send a push notification to the user's devices.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"message": {Type: schema.String, Desc: "The notification text", Required: true},
		}),
	}, nil
}

func (t *PushNotification) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("send_push_notification: parse input: %w", err)
	}
	if strings.TrimSpace(input.Message) == "" {
		return "", fmt.Errorf("send_push_notification: message is required")
	}

	form := url.Values{
		"token":   {t.token},
		"user":    {t.user},
		"message": {input.Message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("send_push_notification: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send_push_notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("send_push_notification: pushover returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return "Notification sent.", nil
}

var _ tool.InvokableTool = (*PushNotification)(nil)
