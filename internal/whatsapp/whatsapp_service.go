package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"sdp-backend/internal/models"
	"sdp-backend/internal/phone"
	"sdp-backend/internal/sms"
)

const ChannelWhatsApp = "whatsapp"

// DefaultTemplate is the approved authentication template carrying the code
const DefaultTemplate = "otp_verification"

// OTPSender delivers a verification code over WhatsApp
type OTPSender interface {
	SendOTP(ctx context.Context, mobile, code string) error
	GetName() string
}

// WhatsAppConfig holds configuration for WhatsApp providers
type WhatsAppConfig struct {
	Provider string // "aisensy" or "interakt"
	APIKey   string
	Template string
	BaseURL  string
}

type client struct {
	config  *WhatsAppConfig
	http    *http.Client
	LogRepo sms.LogRepo
}

func newClient(provider, apiKey, template, baseURL string) client {
	if template == "" {
		template = DefaultTemplate
	}
	return client{
		config: &WhatsAppConfig{
			Provider: provider,
			APIKey:   apiKey,
			Template: template,
			BaseURL:  baseURL,
		},
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL points the client at another endpoint
func (c *client) SetBaseURL(url string) {
	c.config.BaseURL = url
}

// SetLogRepository sets where delivery outcomes are recorded
func (c *client) SetLogRepository(repo sms.LogRepo) {
	c.LogRepo = repo
}

func (c *client) post(ctx context.Context, url string, payload interface{}, header http.Header, mobile string, okStatus ...int) error {
	entry := &models.DeliveryLog{
		Mobile:   mobile,
		Channel:  ChannelWhatsApp,
		Provider: c.config.Provider,
		Status:   models.DeliveryStatusFailed,
	}
	defer sms.RecordDelivery(c.LogRepo, entry)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		entry.ErrorMessage = err.Error()
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		entry.ErrorMessage = err.Error()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		entry.ErrorMessage = err.Error()
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	for _, s := range okStatus {
		if resp.StatusCode == s {
			entry.Status = models.DeliveryStatusSent
			return nil
		}
	}

	entry.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	return fmt.Errorf("%s API error (status %d)", c.config.Provider, resp.StatusCode)
}

// AiSensyService implements WhatsApp via AiSensy campaigns
type AiSensyService struct {
	client
}

func NewAiSensyService(apiKey, template string) *AiSensyService {
	return &AiSensyService{client: newClient("aisensy", apiKey, template, "https://backend.aisensy.com/campaign/t1/api/v2")}
}

func (s *AiSensyService) SendOTP(ctx context.Context, mobile, code string) error {
	payload := map[string]interface{}{
		"apiKey":         s.config.APIKey,
		"campaignName":   s.config.Template,
		"destination":    phone.Digits(mobile),
		"userName":       "Customer",
		"templateParams": []string{code},
		// Authentication templates carry a copy-code button with the same value
		"buttons": []map[string]interface{}{{
			"type":       "button",
			"sub_type":   "url",
			"index":      0,
			"parameters": []map[string]string{{"type": "text", "text": code}},
		}},
	}
	return s.post(ctx, s.config.BaseURL, payload, nil, mobile, http.StatusOK)
}

func (s *AiSensyService) GetName() string {
	return "AiSensy"
}

// InteraktService implements WhatsApp via Interakt
type InteraktService struct {
	client
}

func NewInteraktService(apiKey, template string) *InteraktService {
	return &InteraktService{client: newClient("interakt", apiKey, template, "https://api.interakt.ai/v1/public")}
}

func (s *InteraktService) SendOTP(ctx context.Context, mobile, code string) error {
	digits := phone.Digits(mobile)
	local := phone.Local(mobile)
	payload := map[string]interface{}{
		"countryCode":  "+" + strings.TrimSuffix(digits, local),
		"phoneNumber":  local,
		"callbackData": "otp",
		"type":         "Template",
		"template": map[string]interface{}{
			"name":         s.config.Template,
			"languageCode": "en",
			"bodyValues":   []string{code},
			"buttonValues": map[string][]string{"0": {code}},
		},
	}
	header := http.Header{}
	header.Set("Authorization", "Basic "+s.config.APIKey)
	return s.post(ctx, s.config.BaseURL+"/message/", payload, header, mobile, http.StatusOK, http.StatusCreated)
}

func (s *InteraktService) GetName() string {
	return "Interakt"
}

// CreateOTPSender picks the provider named in configuration. It returns nil
// when WhatsApp delivery is not configured.
func CreateOTPSender(provider, apiKey, template string, logRepo sms.LogRepo) OTPSender {
	if apiKey == "" {
		return nil
	}
	switch strings.ToLower(provider) {
	case "interakt":
		s := NewInteraktService(apiKey, template)
		s.SetLogRepository(logRepo)
		return s
	case "aisensy", "":
		s := NewAiSensyService(apiKey, template)
		s.SetLogRepository(logRepo)
		return s
	default:
		log.Printf("[WhatsApp] Unknown provider %q, WhatsApp OTP disabled", provider)
		return nil
	}
}
