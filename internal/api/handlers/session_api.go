// JSON API over the same controller as the HTML page.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pkt.systems/pslog"

	"github.com/matiasleandrokruk/cleverq/internal/domain/chat"
)

const maxJSONBytes = 16 << 10

// SessionAPIHandler serves the JSON session API under /api/v1.
type SessionAPIHandler struct {
	chat ChatService
}

// NewSessionAPIHandler creates a SessionAPIHandler backed by chat.
func NewSessionAPIHandler(chat ChatService) *SessionAPIHandler {
	return &SessionAPIHandler{chat: chat}
}

type submitRequest struct {
	Input string `json:"input"`
}

type tabRequest struct {
	Name string `json:"name"`
}

type createTabResponse struct {
	Created    bool   `json:"created"`
	CurrentTab string `json:"current_tab"`
}

// GetSession returns every tab of the caller's session. GET /api/v1/session
func (h *SessionAPIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := getSessionID(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	st, err := h.chat.State(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

// Submit asks the collaborator. POST /api/v1/submit
func (h *SessionAPIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	id, err := decodeSessionRequest(w, r, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.chat.Submit(r.Context(), id, req.Input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateTab adds and selects a tab. POST /api/v1/tabs
func (h *SessionAPIHandler) CreateTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	id, err := decodeSessionRequest(w, r, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.chat.CreateTab(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	st, err := h.chat.State(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, createTabResponse{Created: created, CurrentTab: st.CurrentTab()})
}

// SelectTab switches tabs. POST /api/v1/tabs/select
func (h *SessionAPIHandler) SelectTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	id, err := decodeSessionRequest(w, r, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.chat.SelectTab(r.Context(), id, req.Name); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession ends the session. DELETE /api/v1/session
func (h *SessionAPIHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := getSessionID(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.chat.End(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeSessionRequest(w http.ResponseWriter, r *http.Request, dst any) (string, error) {
	id, err := getSessionID(r.Context())
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return "", requestError{status: http.StatusBadRequest, message: "invalid request body"}
	}
	return id, nil
}

func (h *SessionAPIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqErr := classify(err)
	if reqErr.status == http.StatusInternalServerError {
		pslog.Ctx(r.Context()).Error("api action failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, reqErr.status, reqErr.message)
}

var _ ChatService = (*chat.Service)(nil)
