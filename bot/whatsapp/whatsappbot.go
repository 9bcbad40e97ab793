package whatsapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"AgentFlow/entity"
	"AgentFlow/internal/lib/sl"
)

const graphAPIURL = "https://graph.facebook.com/v21.0"

// EngineSink receives normalized inbound events. The session manager
// implements it.
type EngineSink interface {
	HandleIncomingText(ctx context.Context, contactID, text string) error
	HandleSelection(ctx context.Context, contactID string, selection int) error
}

// WhatsAppBot is the messaging gateway adapter for the Meta Cloud API. It
// translates webhook payloads into engine events and outbound actions into
// Graph API send requests.
type WhatsAppBot struct {
	log           *slog.Logger
	sink          EngineSink
	accessToken   string
	verifyToken   string
	appSecret     string
	phoneNumberID string
	client        *http.Client
}

// WebhookPayload represents the incoming webhook payload from WhatsApp
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Value struct {
				MessagingProduct string `json:"messaging_product"`
				Metadata         struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
					WaID string `json:"wa_id"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text,omitempty"`
					Interactive *struct {
						Type        string `json:"type"`
						ButtonReply *struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"button_reply,omitempty"`
						ListReply *struct {
							ID    string `json:"id"`
							Title string `json:"title"`
						} `json:"list_reply,omitempty"`
					} `json:"interactive,omitempty"`
				} `json:"messages"`
			} `json:"value"`
			Field string `json:"field"`
		} `json:"changes"`
	} `json:"entry"`
}

// NewWhatsAppBot creates a new WhatsApp gateway adapter.
func NewWhatsAppBot(accessToken, verifyToken, appSecret, phoneNumberID string, log *slog.Logger) *WhatsAppBot {
	return &WhatsAppBot{
		log:           log.With(sl.Module("whatsappbot")),
		accessToken:   accessToken,
		verifyToken:   verifyToken,
		appSecret:     appSecret,
		phoneNumberID: phoneNumberID,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

// SetSink wires the inbound event consumer.
func (b *WhatsAppBot) SetSink(sink EngineSink) {
	b.sink = sink
}

// HandleWebhookVerification handles the GET request for webhook verification
func (b *WhatsAppBot) HandleWebhookVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == b.verifyToken {
		b.log.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	b.log.Warn("webhook verification failed",
		slog.String("mode", mode),
		slog.Bool("token_match", token == b.verifyToken),
	)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleWebhook handles incoming webhook POST requests
func (b *WhatsAppBot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		b.log.Error("failed to read request body", sl.Err(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Verify signature if app secret is configured
	if b.appSecret != "" {
		signature := r.Header.Get("X-Hub-Signature-256")
		if !b.verifySignature(body, signature) {
			b.log.Warn("invalid webhook signature")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		b.log.Error("failed to parse webhook payload", sl.Err(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Always respond with 200 OK to acknowledge receipt
	w.WriteHeader(http.StatusOK)

	// Process messages asynchronously
	go b.processPayload(payload)
}

// processPayload forwards webhook messages into the engine.
func (b *WhatsAppBot) processPayload(payload WebhookPayload) {
	if payload.Object != "whatsapp_business_account" || b.sink == nil {
		return
	}

	ctx := context.Background()
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}

			for _, message := range change.Value.Messages {
				switch {
				case message.Type == "text" && message.Text != nil && message.Text.Body != "":
					if err := b.sink.HandleIncomingText(ctx, message.From, message.Text.Body); err != nil {
						b.log.Error("handling inbound text",
							slog.String("contact_id", message.From),
							sl.Err(err),
						)
					}

				case message.Type == "interactive" && message.Interactive != nil:
					id := ""
					if message.Interactive.ButtonReply != nil {
						id = message.Interactive.ButtonReply.ID
					} else if message.Interactive.ListReply != nil {
						id = message.Interactive.ListReply.ID
					}
					idx, ok := optionIndex(id)
					if !ok {
						b.log.Warn("unrecognized interactive reply id", slog.String("id", id))
						continue
					}
					if err := b.sink.HandleSelection(ctx, message.From, idx); err != nil {
						b.log.Error("handling inbound selection",
							slog.String("contact_id", message.From),
							sl.Err(err),
						)
					}
				}
			}
		}
	}
}

// optionIndex extracts the option index from an "option-{i}" reply id.
func optionIndex(id string) (int, bool) {
	if !strings.HasPrefix(id, "option-") {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(id, "option-"))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// Send implements the engine's outbound gateway. Plain text becomes a text
// message; up to three options render as native reply buttons, longer option
// sets and menus render as an interactive list.
func (b *WhatsAppBot) Send(ctx context.Context, action entity.Action) error {
	switch {
	case action.Menu != nil:
		return b.sendList(ctx, action.ContactID, action.Menu)
	case len(action.Options) > 0 && len(action.Options) <= 3:
		return b.sendButtons(ctx, action.ContactID, action.Text, action.Options)
	case len(action.Options) > 3:
		menu := &entity.MenuContent{Body: action.Text, Button: "Options", Items: action.Options}
		return b.sendList(ctx, action.ContactID, menu)
	default:
		return b.sendText(ctx, action.ContactID, action.Text)
	}
}

func (b *WhatsAppBot) sendText(ctx context.Context, to, text string) error {
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"preview_url": false,
			"body":        text,
		},
	}
	return b.post(ctx, to, body)
}

func (b *WhatsAppBot) sendButtons(ctx context.Context, to, text string, options []string) error {
	buttons := make([]map[string]any, len(options))
	for i, opt := range options {
		buttons[i] = map[string]any{
			"type": "reply",
			"reply": map[string]string{
				"id":    fmt.Sprintf("option-%d", i),
				"title": truncate(opt, 20),
			},
		}
	}
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]string{"text": text},
			"action": map[string]any{"buttons": buttons},
		},
	}
	return b.post(ctx, to, body)
}

func (b *WhatsAppBot) sendList(ctx context.Context, to string, menu *entity.MenuContent) error {
	rows := make([]map[string]string, len(menu.Items))
	for i, item := range menu.Items {
		rows[i] = map[string]string{
			"id":    fmt.Sprintf("option-%d", i),
			"title": truncate(item, 24),
		}
	}

	interactive := map[string]any{
		"type": "list",
		"body": map[string]string{"text": menu.Body},
		"action": map[string]any{
			"button": defaultStr(menu.Button, "View Options"),
			"sections": []map[string]any{
				{"rows": rows},
			},
		},
	}
	if menu.Header != "" {
		interactive["header"] = map[string]string{"type": "text", "text": menu.Header}
	}
	if menu.Footer != "" {
		interactive["footer"] = map[string]string{"text": menu.Footer}
	}

	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "interactive",
		"interactive":       interactive,
	}
	return b.post(ctx, to, body)
}

func (b *WhatsAppBot) post(ctx context.Context, to string, reqBody map[string]any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", graphAPIURL, b.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.accessToken)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	b.log.Debug("message sent", slog.String("recipient_phone", to))
	return nil
}

// verifySignature verifies the X-Hub-Signature-256 header
func (b *WhatsAppBot) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	// Signature format: "sha256=<hex_signature>"
	if len(signature) < 8 || signature[:7] != "sha256=" {
		return false
	}

	expectedSig := signature[7:]
	mac := hmac.New(sha256.New, []byte(b.appSecret))
	mac.Write(body)
	actualSig := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedSig), []byte(actualSig))
}

// truncate shortens a title to max characters without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
