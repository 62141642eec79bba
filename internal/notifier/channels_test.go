package notifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebhookSend(t *testing.T) {
	var gotBody []byte
	var gotSignature, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-PulseWatch-Signature")
		gotHeader = r.Header.Get("X-Team")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(WebhookConfig{
		Secret:  "hunter2",
		Headers: map[string]string{"X-Team": "ops"},
	})

	resp, err := ch.Send(context.Background(), testNotification(), srv.URL)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp != "status 200" {
		t.Errorf("response = %q", resp)
	}
	if gotHeader != "ops" {
		t.Errorf("X-Team header = %q", gotHeader)
	}

	var payload Notification
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.AlertID != "alert-1" || payload.Title != "[HIGH] high cpu" {
		t.Errorf("payload = %+v", payload)
	}

	mac := hmac.New(sha256.New, []byte("hunter2"))
	mac.Write(gotBody)
	if want := hex.EncodeToString(mac.Sum(nil)); gotSignature != want {
		t.Errorf("signature = %q, want %q", gotSignature, want)
	}
}

func TestWebhookSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(WebhookConfig{})
	if _, err := ch.Send(context.Background(), testNotification(), srv.URL); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestSlackSendPayload(t *testing.T) {
	var got slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := &SlackChannel{
		config:     SlackConfig{WebhookURL: srv.URL},
		httpClient: srv.Client(),
	}

	n := testNotification()
	n.Escalated = true
	if _, err := ch.Send(context.Background(), n, "#incidents"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if got.Channel != "#incidents" {
		t.Errorf("channel = %q", got.Channel)
	}
	if len(got.Blocks) == 0 || got.Blocks[0].Type != "header" {
		t.Fatalf("blocks = %+v", got.Blocks)
	}
	if !strings.Contains(got.Blocks[0].Text.Text, "ESCALATED") {
		t.Errorf("header text = %q, want escalation marker", got.Blocks[0].Text.Text)
	}
	if len(got.Attachments) != 1 {
		t.Fatalf("attachments = %+v, want 1", got.Attachments)
	}
	if got.Attachments[0].Color != severityColor(n.Severity) {
		t.Errorf("attachment color = %q", got.Attachments[0].Color)
	}
	if len(got.Attachments[0].Blocks) != 3 {
		t.Errorf("detail blocks = %d, want 3", len(got.Attachments[0].Blocks))
	}
}

func TestSlackConfigValidate(t *testing.T) {
	if err := (&SlackConfig{}).Validate(); err == nil {
		t.Error("empty webhook URL should fail")
	}
	if err := (&SlackConfig{WebhookURL: "http://hooks.slack.com/x"}).Validate(); err == nil {
		t.Error("plain HTTP webhook URL should fail")
	}
	if err := (&SlackConfig{WebhookURL: "https://hooks.slack.com/x"}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestRenderPlain(t *testing.T) {
	n := testNotification()
	body, err := RenderPlain(n)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"[HIGH]", "high cpu", "95", "90"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "ESCALATED") {
		t.Error("non-escalated body should not carry the escalation marker")
	}

	n.Escalated = true
	body, err = RenderPlain(n)
	if err != nil {
		t.Fatalf("render escalated: %v", err)
	}
	if !strings.Contains(body, "ESCALATED") {
		t.Error("escalated body missing marker")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	got := truncate(strings.Repeat("a", 20), 10)
	if len(got) != 10 || !strings.HasSuffix(got, "...") {
		t.Errorf("got %q", got)
	}
}

const channelsYAML = `
channels:
  - name: ops-slack
    type: slack
    recipients: ["#incidents"]
    slack:
      webhook_url: https://hooks.slack.com/services/T000/B000/XXX
  - name: ops-webhook
    type: webhook
    recipients: ["https://example.com/hook"]
    webhook:
      secret: hunter2
`

func TestLoadChannels(t *testing.T) {
	configs, err := LoadChannels(strings.NewReader(channelsYAML))
	if err != nil {
		t.Fatalf("load channels: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("got %d channels, want 2", len(configs))
	}
	if configs[0].Name != "ops-slack" || configs[0].Type != "slack" {
		t.Errorf("first channel = %+v", configs[0])
	}
	if configs[1].Webhook == nil || configs[1].Webhook.Secret != "hunter2" {
		t.Errorf("webhook settings not parsed: %+v", configs[1].Webhook)
	}
}

func TestLoadChannelsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "channels:\n  - type: webhook\n    recipients: [\"https://x\"]\n"},
		{"missing recipients", "channels:\n  - name: x\n    type: webhook\n"},
		{"bad type", "channels:\n  - name: x\n    type: carrier-pigeon\n    recipients: [\"y\"]\n"},
		{"slack without settings", "channels:\n  - name: x\n    type: slack\n    recipients: [\"#y\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadChannels(strings.NewReader(tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigureRegistersAndPrunes(t *testing.T) {
	d := NewDispatcher(nil, 100, 100)
	d.Register("stale", &stubChannel{name: "stale"}, []string{"x"})

	configs, err := LoadChannels(strings.NewReader(channelsYAML))
	if err != nil {
		t.Fatalf("load channels: %v", err)
	}
	if err := Configure(d, configs); err != nil {
		t.Fatalf("configure: %v", err)
	}

	names := d.Names()
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	if !have["ops-slack"] || !have["ops-webhook"] {
		t.Errorf("names = %v, want configured channels", names)
	}
	if have["stale"] {
		t.Error("stale channel not unregistered")
	}
}

func TestChannelTimeouts(t *testing.T) {
	webhook := NewWebhookChannel(WebhookConfig{})
	if webhook.Timeout() != 5*time.Second {
		t.Errorf("webhook timeout = %v", webhook.Timeout())
	}
	slack := &SlackChannel{}
	if slack.Timeout() != 3*time.Second {
		t.Errorf("slack timeout = %v", slack.Timeout())
	}
}
