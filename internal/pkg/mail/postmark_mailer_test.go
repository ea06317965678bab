package mail

import (
	"errors"
	"strings"
	"testing"
)

func TestNewPostmarkMailerConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid minimal config",
			cfg:     Config{ServerToken: "token", SenderEmail: "noreply@posturafit.app"},
			wantErr: false,
		},
		{
			name:    "valid with reply-to",
			cfg:     Config{ServerToken: "token", SenderEmail: "noreply@posturafit.app", ReplyTo: "support@posturafit.app"},
			wantErr: false,
		},
		{
			name:    "missing server token",
			cfg:     Config{SenderEmail: "noreply@posturafit.app"},
			wantErr: true,
		},
		{
			name:    "missing sender",
			cfg:     Config{ServerToken: "token"},
			wantErr: true,
		},
		{
			name:    "malformed sender",
			cfg:     Config{ServerToken: "token", SenderEmail: "not-an-address"},
			wantErr: true,
		},
		{
			name:    "malformed reply-to",
			cfg:     Config{ServerToken: "token", SenderEmail: "noreply@posturafit.app", ReplyTo: "nope"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		m, err := NewPostmarkMailer(tt.cfg)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if m == nil {
			t.Fatalf("%s: expected a mailer", tt.name)
		}
	}
}

func TestSupportTemplatesEscapeUserInput(t *testing.T) {
	body := SupportTicketBody(12, "a@b.c", `<script>alert(1)</script>`, "help <b>me</b>")
	if strings.Contains(body, "<script>") {
		t.Fatalf("expected subject to be escaped, body: %s", body)
	}
	if !strings.Contains(body, "#12") {
		t.Fatalf("expected ticket number in body")
	}

	auto := SupportAutoresponseBody(12, "my subject")
	if !strings.Contains(auto, "#12") {
		t.Fatalf("expected ticket number in autoresponse")
	}
}
