package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
)

func TestGatewaySend(t *testing.T) {
	var received mailPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mail" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	gateway := NewGateway(Config{Endpoint: server.URL + "/", From: "noreply@journeest.app"})
	err := gateway.Send(context.Background(), application.MailMessage{
		To:      " ana@example.com ",
		Subject: "Tienes un nuevo diagnóstico asignado: Ventas",
		HTML:    "<p>hola</p>",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if received.To != "ana@example.com" || received.From != "noreply@journeest.app" || received.Message.Subject == "" {
		t.Fatalf("unexpected payload: %+v", received)
	}
}

func TestGatewayRetriesThenFails(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gateway := NewGateway(Config{Endpoint: server.URL, Attempts: 3})
	err := gateway.Send(context.Background(), application.MailMessage{To: "a@example.com", Subject: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestGatewayRetrySucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gateway := NewGateway(Config{Endpoint: server.URL, Attempts: 2})
	if err := gateway.Send(context.Background(), application.MailMessage{To: "a@example.com"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
}

func TestGatewayRequiresRecipient(t *testing.T) {
	gateway := NewGateway(Config{Endpoint: "http://localhost"})
	if err := gateway.Send(context.Background(), application.MailMessage{}); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
}
