package africasTalkingApi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tkmaina/ussd_stock_tracker/config"
	"github.com/tkmaina/ussd_stock_tracker/internal/externalApi"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		AfricasTalking: config.AfricasTalking{
			Username: "sandbox",
			APIKey:   "test-key",
			SenderID: "TRACKER",
			BaseURL:  baseURL,
			Timeout:  5 * time.Second,
		},
	}
}

func TestSendSMS(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apiKey")
		_ = r.ParseForm()
		gotForm = map[string]string{
			"username": r.FormValue("username"),
			"to":       r.FormValue("to"),
			"message":  r.FormValue("message"),
			"from":     r.FormValue("from"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"SMSMessageData":{"Message":"Sent to 1/1","Recipients":[{"number":"+254700000001","status":"Success"}]}}`))
	}))
	defer srv.Close()

	api := New(testConfig(srv.URL))

	err := api.SendSMS(context.Background(), "+254700000001", "Market Open Update:\nSafaricom: Ksh 15.50")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}

	if gotPath != "/version1/messaging" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("apiKey header = %s", gotAPIKey)
	}
	want := map[string]string{
		"username": "sandbox",
		"to":       "+254700000001",
		"message":  "Market Open Update:\nSafaricom: Ksh 15.50",
		"from":     "TRACKER",
	}
	for k, v := range want {
		if gotForm[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, gotForm[k], v)
		}
	}
}

func TestSendSMSOmitsEmptySenderID(t *testing.T) {
	var hasFrom bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		_, hasFrom = r.PostForm["from"]
		_, _ = w.Write([]byte(`{"SMSMessageData":{"Recipients":[{"number":"+254700000001","status":"Success"}]}}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.AfricasTalking.SenderID = ""
	api := New(cfg)

	if err := api.SendSMS(context.Background(), "+254700000001", "hi"); err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if hasFrom {
		t.Error("from field should be omitted without a sender ID")
	}
}

func TestSendSMSRejectedRecipient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"SMSMessageData":{"Recipients":[{"number":"+254700000001","status":"InvalidPhoneNumber"}]}}`))
	}))
	defer srv.Close()

	api := New(testConfig(srv.URL))

	err := api.SendSMS(context.Background(), "+254700000001", "hi")
	if !errors.Is(err, externalApi.ErrSendFailed) {
		t.Errorf("err = %v, want ErrSendFailed", err)
	}
}

func TestSendSMSErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	api := New(testConfig(srv.URL))

	err := api.SendSMS(context.Background(), "+254700000001", "hi")
	if !errors.Is(err, externalApi.ErrSendFailed) {
		t.Errorf("err = %v, want ErrSendFailed", err)
	}
}
