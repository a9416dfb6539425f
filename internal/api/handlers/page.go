// HTML form handlers for the single CleverQ page.
// Mutating actions follow Post/Redirect/Get; failures re-render the page with a notice.
package handlers

import (
	"errors"
	"net/http"

	"pkt.systems/pslog"

	"github.com/matiasleandrokruk/cleverq/internal/domain/session"
	"github.com/matiasleandrokruk/cleverq/internal/view"
)

const maxFormBytes = 16 << 10

// PageHandler serves the HTML page and its form actions.
type PageHandler struct {
	chat ChatService
}

// NewPageHandler creates a PageHandler backed by chat.
func NewPageHandler(chat ChatService) *PageHandler {
	return &PageHandler{chat: chat}
}

// Index renders the current session. GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "", "")
}

// Submit asks the collaborator. POST /submit
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, input, ok := h.form(w, r, "input")
	if !ok {
		return
	}
	if _, err := h.chat.Submit(r.Context(), id, input); err != nil {
		h.fail(w, r, err, input)
		return
	}
	redirectHome(w, r)
}

// CreateTab adds and selects a tab. POST /tabs
func (h *PageHandler) CreateTab(w http.ResponseWriter, r *http.Request) {
	id, name, ok := h.form(w, r, "name")
	if !ok {
		return
	}
	if _, err := h.chat.CreateTab(r.Context(), id, name); err != nil {
		h.fail(w, r, err, "")
		return
	}
	redirectHome(w, r)
}

// SelectTab switches tabs. POST /tabs/select
func (h *PageHandler) SelectTab(w http.ResponseWriter, r *http.Request) {
	id, name, ok := h.form(w, r, "name")
	if !ok {
		return
	}
	if err := h.chat.SelectTab(r.Context(), id, name); err != nil {
		if errors.Is(err, session.ErrUnknownTab) {
			h.render(w, r, http.StatusBadRequest, "Unknown tab: "+name, "")
			return
		}
		h.fail(w, r, err, "")
		return
	}
	redirectHome(w, r)
}

// Reset ends the session. POST /session/reset
func (h *PageHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, err := getSessionID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.chat.End(r.Context(), id); err != nil {
		h.fail(w, r, err, "")
		return
	}
	redirectHome(w, r)
}

// form parses a urlencoded body and returns the session id and one field.
func (h *PageHandler) form(w http.ResponseWriter, r *http.Request, field string) (string, string, bool) {
	id, err := getSessionID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return "", "", false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "Invalid form submission.", "")
		return "", "", false
	}
	return id, r.PostForm.Get(field), true
}

// fail re-renders the page with the error's notice, or 500 for unexpected errors.
// draft refills the question box without touching the stored session.
func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, err error, draft string) {
	reqErr := classify(err)
	if reqErr.status >= http.StatusInternalServerError && reqErr.status != http.StatusBadGateway {
		pslog.Ctx(r.Context()).Error("page action failed", "path", r.URL.Path, "err", err)
	}
	h.render(w, r, reqErr.status, reqErr.message, draft)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, notice, draft string) {
	id, err := getSessionID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	st, err := h.chat.State(r.Context(), id)
	if err != nil {
		pslog.Ctx(r.Context()).Error("load session for render", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page := view.Build(st, notice)
	if draft != "" {
		page.PendingInput = draft
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := view.Render(w, page); err != nil {
		pslog.Ctx(r.Context()).Error("render page", "err", err)
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
