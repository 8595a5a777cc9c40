package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestSendWithoutConfigFails(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendNotificationEmail([]string{"a@example.com"}, "t", "m", ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestRenderVerificationTemplate(t *testing.T) {
	data := VerificationData{
		AppName:         "Folio",
		UserName:        "Test User",
		VerificationURL: "https://example.com/verify-email?token=abc123",
	}

	html, err := renderTemplate(verificationEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Folio") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "Test User") {
		t.Error("template should contain user name")
	}
	if !strings.Contains(html, "https://example.com/verify-email?token=abc123") {
		t.Error("template should contain verification URL")
	}
}

func TestSendNotificationEmail(t *testing.T) {
	svc := NewService(Config{
		Host:     "smtp.example.com",
		Port:     "587",
		From:     "noreply@example.com",
		FromName: "Folio",
		AppURL:   "https://folio.example.com/",
	})

	var gotTo []string
	var gotMsg string
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		if addr != "smtp.example.com:587" {
			t.Errorf("unexpected addr %q", addr)
		}
		if from != "noreply@example.com" {
			t.Errorf("unexpected envelope sender %q", from)
		}
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	err := svc.SendNotificationEmail([]string{"ed@example.com"}, "New Paper Submission", `New paper "T" has been submitted`, "pap_1")
	if err != nil {
		t.Fatalf("SendNotificationEmail() error = %v", err)
	}
	if len(gotTo) != 1 || gotTo[0] != "ed@example.com" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}
	for _, want := range []string{
		"Subject: [Folio] New Paper Submission",
		"From: Folio <noreply@example.com>",
		"https://folio.example.com/papers/pap_1",
		"New paper &#34;T&#34; has been submitted",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSendHTMLEmailNoRecipientsIsNoop(t *testing.T) {
	svc := NewService(Config{Host: "h", Port: "25", From: "f@example.com"})
	svc.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send should not be called")
		return nil
	}
	if err := svc.SendHTMLEmail(nil, "s", "t", "<p>h</p>"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
