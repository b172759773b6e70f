package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Jamolkhon5/drai/internal/chat"
	"github.com/Jamolkhon5/drai/internal/credential"
	"github.com/Jamolkhon5/drai/internal/history"
	"github.com/Jamolkhon5/drai/internal/models"
	"github.com/Jamolkhon5/drai/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ClientIDHeader идентифицирует браузерного клиента: каждое значение получает
// собственное пространство настроек и истории, как localStorage в пределах
// origin.
const ClientIDHeader = "X-Client-ID"

// Tester проверяет ключ живым вызовом бэкенда генерации
type Tester interface {
	TestConnection(ctx context.Context, key string) error
}

type Handler struct {
	chat     *chat.Service
	resolver *credential.Resolver
	history  *history.Store
	tester   Tester
	store    storage.Store
}

func NewHandler(chatSvc *chat.Service, resolver *credential.Resolver, hist *history.Store, tester Tester, store storage.Store) *Handler {
	return &Handler{
		chat:     chatSvc,
		resolver: resolver,
		history:  hist,
		tester:   tester,
		store:    store,
	}
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	messages, err := h.chat.Submit(r.Context(), clientID, req.Message, req.Image)
	if errors.Is(err, chat.ErrEmptyPrompt) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if errors.Is(err, chat.ErrInFlight) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, models.ChatResponse{
		Messages: messages,
		State:    h.chat.State(clientID),
	})
}

func (h *Handler) NewChat(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, models.ChatResponse{
		Messages: h.chat.NewChat(clientID),
		State:    chat.StateIdle,
	})
}

func (h *Handler) ActiveChat(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, models.ChatResponse{
		Messages: h.chat.Active(clientID),
		State:    h.chat.State(clientID),
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, h.history.LoadSessions(clientID))
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	if err := h.history.DeleteSession(clientID, chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	if err := h.history.ClearSessions(clientID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	source := h.resolver.Resolve(clientID)
	h.writeJSON(w, models.CredentialStatus{
		Source:     string(source),
		Configured: source != credential.SourceNone,
	})
}

func (h *Handler) SaveCredential(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	var req models.CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.resolver.SaveUserKey(clientID, req.Key); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	if err := h.resolver.ClearUserKey(clientID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestCredential — проверка ключа живым запросом, как кнопка
// "Test Connection" на странице интеграции. Сначала локальная проверка
// формата, только потом сеть.
func (h *Handler) TestCredential(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	var req models.CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := credential.ValidateFormat(req.Key); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := h.tester.TestConnection(r.Context(), req.Key); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if err := h.resolver.SaveUserKey(clientID, req.Key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveProfile и SaveSettings хранят непрозрачные JSON-записи, последняя
// запись побеждает
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	h.saveBlob(w, r, storage.KeyProfile)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	h.loadBlob(w, r, storage.KeyProfile)
}

func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	h.saveBlob(w, r, storage.KeySettings)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.loadBlob(w, r, storage.KeySettings)
}

func (h *Handler) saveBlob(w http.ResponseWriter, r *http.Request, key string) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "Body must be valid JSON", http.StatusBadRequest)
		return
	}

	if err := h.store.Set(clientID, key, string(body)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadBlob(w http.ResponseWriter, r *http.Request, key string) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}

	value, found, err := h.store.Get(clientID, key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		value = "null"
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(value)); err != nil {
		logrus.WithError(err).Error("failed to write response")
	}
}

func (h *Handler) clientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	clientID := r.Header.Get(ClientIDHeader)
	if clientID == "" {
		http.Error(w, "Missing "+ClientIDHeader+" header", http.StatusBadRequest)
		return "", false
	}
	return clientID, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}
