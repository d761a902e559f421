package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/lojasmm/wamenu/internal/menu"
	"github.com/lojasmm/wamenu/internal/store"
	"github.com/lojasmm/wamenu/internal/whatsapp"
)

// Version is reported by the status and info endpoints.
const Version = "1.0.0"

const maxBodyBytes = 1 << 20

// Demo sends the default list to a number on request.
type Demo interface {
	SendDefaultList(ctx context.Context, to string) error
}

// SenderFactory builds a sender from Cloud API credentials.
type SenderFactory func(phoneNumberID, accessToken string) whatsapp.Sender

// Handler serves the admin REST API used by the configuration portal.
type Handler struct {
	store     store.Store
	demo      Demo
	senders   *whatsapp.SenderRef
	newSender SenderFactory
	token     string
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewHandler(s store.Store, demo Demo, senders *whatsapp.SenderRef, newSender SenderFactory, token string, log logrus.FieldLogger) *Handler {
	return &Handler{
		store:     s,
		demo:      demo,
		senders:   senders,
		newSender: newSender,
		token:     token,
		log:       log.WithField("component", "admin"),
		now:       time.Now,
	}
}

// Routes mounts the admin endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleInfo)

	r.Group(func(r chi.Router) {
		r.Use(h.requireToken)

		r.Get("/send-demo", h.handleSendDemo)

		r.Route("/api", func(r chi.Router) {
			r.Get("/status", h.handleStatus)
			r.Get("/config", h.handleGetConfig)
			r.Post("/config", h.handleSaveConfig)
			r.Get("/analytics", h.handleGetStats)
			r.Post("/analytics", h.handleSaveStats)
			r.Post("/reset", h.handleReset)
			r.Put("/credentials", h.handleCredentials)
			r.Get("/{section}", h.handleGetSection)
			r.Post("/{section}", h.handleSaveSection)
		})
	})
}

// requireToken checks the bearer token when one is configured.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// phoneNumbered is implemented by senders bound to a Cloud API phone number.
type phoneNumbered interface {
	PhoneNumberID() string
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	sender := h.senders.Sender()
	status := "Cliente WhatsApp: ✅ Conectado"
	if sender == nil {
		status = "Cliente WhatsApp: ❌ Error de configuración"
	}
	info := map[string]any{
		"message": "🤖 Bot de WhatsApp funcionando correctamente",
		"version": Version,
		"endpoints": map[string]string{
			"webhook_verification": "GET /webhook",
			"webhook_messages":     "POST /webhook",
			"demo":                 "GET /send-demo?to=NUMERO",
		},
		"status": status,
	}
	if p, ok := sender.(phoneNumbered); ok {
		info["phone_number_id"] = p.PhoneNumberID()
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "online",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	tree, err := h.store.Tree()
	if err != nil {
		h.internalError(w, "loading config", err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var tree menu.Tree
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&tree); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}
	if err := h.store.ReplaceTree(&tree); err != nil {
		h.writeStoreError(w, "saving config", err)
		return
	}
	h.log.Info("config replaced")
	writeSuccess(w, "Configuración guardada correctamente")
}

func (h *Handler) handleGetSection(w http.ResponseWriter, r *http.Request) {
	raw, err := h.store.Section(chi.URLParam(r, "section"))
	if err != nil {
		h.writeStoreError(w, "loading section", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (h *Handler) handleSaveSection(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	if err := h.store.ReplaceSection(section, raw); err != nil {
		h.writeStoreError(w, "saving section", err)
		return
	}
	h.log.WithField("section", section).Info("section replaced")
	writeSuccess(w, "Sección guardada correctamente")
}

func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Stats()
	if err != nil {
		h.internalError(w, "loading stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleSaveStats(w http.ResponseWriter, r *http.Request) {
	var st menu.Stats
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid stats: "+err.Error())
		return
	}
	if err := h.store.SaveStats(st); err != nil {
		h.internalError(w, "saving stats", err)
		return
	}
	writeSuccess(w, "Estadísticas actualizadas")
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(); err != nil {
		h.internalError(w, "resetting config", err)
		return
	}
	tree, err := h.store.Tree()
	if err != nil {
		h.internalError(w, "loading config", err)
		return
	}
	h.log.Warn("config reset to defaults")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Configuración reiniciada a valores por defecto",
		"config":  tree,
	})
}

type credentialsRequest struct {
	PhoneNumberID string `json:"phoneNumberId"`
	AccessToken   string `json:"accessToken"`
}

// handleCredentials persists new Cloud API credentials and swaps the active
// sender. Sends already scheduled pick up the new sender when they fire.
func (h *Handler) handleCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	req.PhoneNumberID = strings.TrimSpace(req.PhoneNumberID)
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	if req.PhoneNumberID == "" || req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "phoneNumberId and accessToken are required")
		return
	}

	if err := h.store.SaveCredentials(req.PhoneNumberID, req.AccessToken); err != nil {
		h.internalError(w, "saving credentials", err)
		return
	}
	h.senders.Swap(h.newSender(req.PhoneNumberID, req.AccessToken))

	h.log.WithField("phone_number_id", req.PhoneNumberID).Info("credentials updated")
	writeSuccess(w, "Credenciales actualizadas")
}

func (h *Handler) handleSendDemo(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   `Se requiere el parámetro "to" con el número de teléfono`,
			"example": "/send-demo?to=521234567890",
		})
		return
	}

	if err := h.demo.SendDefaultList(r.Context(), to); err != nil {
		h.log.WithError(err).WithField("to", to).Error("demo send failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   "Error enviando mensaje de demostración",
			"details": err.Error(),
			"kind":    whatsapp.KindOf(err),
		})
		return
	}
	writeSuccess(w, "Lista de demostración enviada a "+to)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	var verr *store.ValidationError
	switch {
	case errors.Is(err, store.ErrUnknownSection):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.internalError(w, op, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.log.WithError(err).Error(op)
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func writeSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
