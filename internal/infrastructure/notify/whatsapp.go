package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinic-booking/config"

	"github.com/sirupsen/logrus"
)

var ErrNotConfigured = errors.New("notify: sender not configured")

// SendResult carries the provider-side id of a delivered message.
type SendResult struct {
	MessageID string
}

// MessageSender delivers a rendered text message to a patient phone number.
type MessageSender interface {
	Send(ctx context.Context, to, body string) (*SendResult, error)
}

// UltraMsgSender posts chat messages through the UltraMsg WhatsApp gateway.
type UltraMsgSender struct {
	client     *http.Client
	baseURL    string
	instanceID string
	token      string
	log        *logrus.Logger
}

func NewUltraMsgSender(cfg config.WhatsAppConfig, log *logrus.Logger) *UltraMsgSender {
	base := strings.TrimRight(cfg.APIURL, "/")
	// Accept a base URL that already embeds the instance path.
	if i := strings.Index(base, "/instance"); i >= 0 {
		base = base[:i]
	}
	return &UltraMsgSender{
		client:     &http.Client{Timeout: 10 * time.Second},
		baseURL:    base,
		instanceID: cfg.InstanceID,
		token:      cfg.Token,
		log:        log,
	}
}

type ultraMsgResponse struct {
	Sent    interface{} `json:"sent"`
	Message string      `json:"message"`
	ID      interface{} `json:"id"`
	Error   interface{} `json:"error"`
}

func (s *UltraMsgSender) Send(ctx context.Context, to, body string) (*SendResult, error) {
	if s.token == "" || s.instanceID == "" {
		return nil, ErrNotConfigured
	}

	phone := to
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}

	form := url.Values{}
	form.Set("token", s.token)
	form.Set("to", phone)
	form.Set("body", body)

	endpoint := fmt.Sprintf("%s/%s/messages/chat", s.baseURL, s.instanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notify: whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("notify: whatsapp gateway returned status %d", resp.StatusCode)
	}

	var out ultraMsgResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("notify: invalid whatsapp gateway response: %w", err)
	}
	if !truthy(out.Sent) {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprint(out.Error)
		}
		return nil, fmt.Errorf("notify: whatsapp message not sent: %s", msg)
	}

	id := ""
	if out.ID != nil {
		id = fmt.Sprint(out.ID)
	}
	s.log.WithField("message_id", id).Info("WhatsApp message sent")
	return &SendResult{MessageID: id}, nil
}

// The gateway reports "sent" as either a JSON bool or the string "true".
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

var _ MessageSender = (*UltraMsgSender)(nil)
