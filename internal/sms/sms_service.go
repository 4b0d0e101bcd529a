package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sdp-backend/internal/models"
	"sdp-backend/internal/phone"
)

const ChannelSMS = "sms"

// LogRepo persists delivery outcomes
type LogRepo interface {
	Create(ctx context.Context, l *models.DeliveryLog) error
}

// RecordDelivery writes l in the background so a slow database never holds
// up an OTP response
func RecordDelivery(repo LogRepo, l *models.DeliveryLog) {
	if repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Create(ctx, l); err != nil {
			log.Printf("[SMS] Failed to record delivery log for %s: %v", l.Mobile, err)
		}
	}()
}

// SMSConfig holds Fast2SMS route settings
type SMSConfig struct {
	Route      string // "q" (quick) or "dlt" (registered template)
	SenderID   string // For DLT route (e.g., "SDPRNT")
	TemplateID string // For DLT route
}

// Fast2SMSService delivers OTPs through Fast2SMS (India)
type Fast2SMSService struct {
	APIKey  string
	BaseURL string
	Config  *SMSConfig
	LogRepo LogRepo
	client  *http.Client
}

func NewFast2SMSService(apiKey string) *Fast2SMSService {
	return &Fast2SMSService{
		APIKey:  apiKey,
		BaseURL: "https://www.fast2sms.com/dev/bulkV2",
		Config:  &SMSConfig{Route: "q"},
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SetConfig sets the route configuration
func (s *Fast2SMSService) SetConfig(config *SMSConfig) {
	if config != nil {
		s.Config = config
	}
}

// SendOTP sends code to mobile, which is in canonical "+<digits>" form
func (s *Fast2SMSService) SendOTP(ctx context.Context, mobile, code string) error {
	q := url.Values{}
	q.Set("authorization", s.APIKey)
	q.Set("numbers", phone.Local(mobile))
	q.Set("flash", "0")

	switch s.Config.Route {
	case "dlt":
		// DLT route (cheaper, requires registration)
		q.Set("route", "dlt")
		q.Set("sender_id", s.Config.SenderID)
		q.Set("message", s.Config.TemplateID)
		q.Set("variables_values", code)
	default:
		q.Set("route", "q")
		q.Set("language", "english")
		q.Set("message", fmt.Sprintf("Your verification code is %s. Valid for 10 minutes. Do not share this code with anyone.", code))
	}

	entry := &models.DeliveryLog{
		Mobile:   mobile,
		Channel:  ChannelSMS,
		Provider: "fast2sms",
		Status:   models.DeliveryStatusFailed,
	}
	defer RecordDelivery(s.LogRepo, entry)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		entry.ErrorMessage = err.Error()
		return fmt.Errorf("failed to create SMS request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		entry.ErrorMessage = err.Error()
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		entry.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))
		return fmt.Errorf("SMS API error (status %d)", resp.StatusCode)
	}

	var apiResp struct {
		Return    bool            `json:"return"`
		RequestID string          `json:"request_id"`
		Message   json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil || !apiResp.Return {
		entry.ErrorMessage = strings.TrimSpace(string(body))
		return fmt.Errorf("SMS API rejected the message")
	}

	entry.Status = models.DeliveryStatusSent
	entry.ReferenceID = apiResp.RequestID
	return nil
}

// MockSMSService only logs that a message would have been sent. The code is
// printed by the OTP service itself in dev mode.
type MockSMSService struct {
	LogRepo LogRepo
}

func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

func (s *MockSMSService) SendOTP(_ context.Context, mobile, _ string) error {
	log.Printf("[SMS-MOCK] OTP message to %s", mobile)
	RecordDelivery(s.LogRepo, &models.DeliveryLog{
		Mobile:   mobile,
		Channel:  ChannelSMS,
		Provider: "mock",
		Status:   models.DeliveryStatusSent,
	})
	return nil
}
