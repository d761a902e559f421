package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	maxPayloadBytes = 1 << 20
	seenMessageTTL  = 10 * time.Minute
)

// EventHandler receives inbound events with the sender number already
// normalized.
type EventHandler interface {
	HandleText(ctx context.Context, from, body string)
	HandleSelection(ctx context.Context, from, rowID, title string)
	HandleButton(ctx context.Context, from, buttonID, text string)
	// HandleUnsupported is called for message types the bot cannot answer.
	// kind is the message type, or "interactive/<subtype>".
	HandleUnsupported(ctx context.Context, from, kind string)
}

// SenderLimiter decides whether an inbound event from a sender is processed.
type SenderLimiter interface {
	Allow(sender string) bool
}

type WebhookHandler struct {
	verifyToken string
	appSecret   string
	events      EventHandler
	limiter     SenderLimiter
	seen        *cache.Cache
	log         logrus.FieldLogger
}

type WebhookOption func(*WebhookHandler)

// WithAppSecret enables X-Hub-Signature-256 validation.
func WithAppSecret(secret string) WebhookOption {
	return func(h *WebhookHandler) { h.appSecret = secret }
}

func WithSenderLimiter(l SenderLimiter) WebhookOption {
	return func(h *WebhookHandler) { h.limiter = l }
}

func NewWebhookHandler(verifyToken string, events EventHandler, log logrus.FieldLogger, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{
		verifyToken: verifyToken,
		events:      events,
		seen:        cache.New(seenMessageTTL, 2*seenMessageTTL),
		log:         log.WithField("component", "webhook"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleVerify handles the GET webhook verification from Meta.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/get-started#webhook-verification
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.log.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	h.log.WithField("mode", mode).Warn("webhook verification failed")
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleIncoming processes incoming webhook POST notifications. It answers
// 200 for anything it could read, including payloads it ignores, so Meta
// does not redeliver.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/components
func (h *WebhookHandler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" && !validSignature(body, r.Header.Get("X-Hub-Signature-256"), h.appSecret) {
		h.log.Warn("invalid webhook signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.WithError(err).Warn("failed to decode payload")
		w.WriteHeader(http.StatusOK)
		return
	}

	if payload.Object == "whatsapp_business_account" {
		h.process(r.Context(), payload)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *WebhookHandler) process(ctx context.Context, payload WebhookPayload) {
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, msg := range change.Value.Messages {
				h.dispatch(ctx, msg)
			}
			for _, st := range change.Value.Statuses {
				h.log.WithFields(logrus.Fields{
					"message_id": st.ID,
					"status":     st.Status,
				}).Debug("status update")
			}
		}
	}
}

func (h *WebhookHandler) dispatch(ctx context.Context, msg Message) {
	if msg.ID != "" {
		// Add fails when the id is already cached.
		if err := h.seen.Add(msg.ID, struct{}{}, cache.DefaultExpiration); err != nil {
			h.log.WithField("message_id", msg.ID).Debug("skipping redelivered message")
			return
		}
	}

	from := NormalizeNumber(msg.From)
	log := h.log.WithFields(logrus.Fields{"from": from, "type": msg.Type, "message_id": msg.ID})

	if h.limiter != nil && !h.limiter.Allow(from) {
		log.Warn("sender over inbound rate limit, dropping message")
		return
	}

	log.Info("message received")

	switch msg.Type {
	case "text":
		if msg.Text != nil {
			h.events.HandleText(ctx, from, msg.Text.Body)
			return
		}
	case "interactive":
		if msg.Interactive != nil {
			switch msg.Interactive.Type {
			case "list_reply":
				if reply := msg.Interactive.ListReply; reply != nil {
					h.events.HandleSelection(ctx, from, reply.ID, reply.Title)
					return
				}
			case "button_reply":
				if reply := msg.Interactive.ButtonReply; reply != nil {
					h.events.HandleButton(ctx, from, reply.ID, reply.Title)
					return
				}
			}
			h.events.HandleUnsupported(ctx, from, "interactive/"+msg.Interactive.Type)
			return
		}
	case "button":
		if msg.Button != nil {
			h.events.HandleButton(ctx, from, msg.Button.Payload, msg.Button.Text)
			return
		}
	}

	h.events.HandleUnsupported(ctx, from, msg.Type)
}

// validSignature checks the X-Hub-Signature-256 HMAC.
func validSignature(body []byte, header, secret string) bool {
	if header == "" {
		return false
	}
	sig := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}
