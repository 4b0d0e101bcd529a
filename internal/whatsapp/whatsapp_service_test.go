package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAiSensySendOTP(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewAiSensyService("key", "")
	s.SetBaseURL(srv.URL)
	if err := s.SendOTP(context.Background(), "+919812345678", "246810"); err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if got["destination"] != "919812345678" || got["campaignName"] != DefaultTemplate {
		t.Fatalf("unexpected payload %v", got)
	}
	params, _ := got["templateParams"].([]interface{})
	if len(params) != 1 || params[0] != "246810" {
		t.Fatalf("code not in template params: %v", got["templateParams"])
	}
}

func TestInteraktSendOTP(t *testing.T) {
	var got map[string]interface{}
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewInteraktService("secret", "login_code")
	s.SetBaseURL(srv.URL)
	if err := s.SendOTP(context.Background(), "+919812345678", "135790"); err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if auth != "Basic secret" || path != "/message/" {
		t.Fatalf("unexpected request auth=%q path=%q", auth, path)
	}
	if got["countryCode"] != "+91" || got["phoneNumber"] != "9812345678" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestSendOTPProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"template not approved"}`))
	}))
	defer srv.Close()

	s := NewAiSensyService("key", "")
	s.SetBaseURL(srv.URL)
	if err := s.SendOTP(context.Background(), "+919812345678", "000000"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateOTPSender(t *testing.T) {
	if CreateOTPSender("aisensy", "", "", nil) != nil {
		t.Fatal("expected nil without api key")
	}
	if s := CreateOTPSender("interakt", "k", "", nil); s == nil || s.GetName() != "Interakt" {
		t.Fatalf("unexpected sender %v", s)
	}
	if s := CreateOTPSender("", "k", "", nil); s == nil || s.GetName() != "AiSensy" {
		t.Fatalf("unexpected default sender %v", s)
	}
	if CreateOTPSender("carrier-pigeon", "k", "", nil) != nil {
		t.Fatal("unknown provider should disable the channel")
	}
}
