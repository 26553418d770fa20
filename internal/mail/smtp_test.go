package mail_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snapcart/storefront-api/internal/mail"
)

func TestSendWithoutCredentials(t *testing.T) {
	s := &mail.SMTP{Host: "smtp.example.com", Port: 465, Log: zerolog.Nop()}
	id, err := s.Send("shopper@example.com", "hi", "<p>hi</p>")
	if !errors.Is(err, mail.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty message id, got %q", id)
	}
}

func TestVerifyWithoutCredentials(t *testing.T) {
	s := &mail.SMTP{Host: "smtp.example.com", Port: 465, Log: zerolog.Nop()}
	if err := s.Verify(); !errors.Is(err, mail.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestConfigured(t *testing.T) {
	cases := []struct {
		name string
		s    *mail.SMTP
		want bool
	}{
		{"nil", nil, false},
		{"empty", &mail.SMTP{}, false},
		{"user only", &mail.SMTP{Username: "shop@example.com"}, false},
		{"pass only", &mail.SMTP{Password: "apppass"}, false},
		{"both", &mail.SMTP{Username: "shop@example.com", Password: "apppass"}, true},
	}
	for _, tc := range cases {
		if got := tc.s.Configured(); got != tc.want {
			t.Fatalf("%s: Configured() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMemorySender(t *testing.T) {
	m := &mail.Memory{}
	id, err := m.Send("shopper@example.com", "order confirmed", "<p>thanks</p>")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id == "" {
		t.Fatal("expected a message id")
	}
	if len(m.Outbox) != 1 || m.Outbox[0].To != "shopper@example.com" {
		t.Fatalf("unexpected outbox: %+v", m.Outbox)
	}
}
