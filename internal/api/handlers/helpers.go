// Handler helper functions and context management.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/matiasleandrokruk/cleverq/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/cleverq/internal/domain/chat"
	"github.com/matiasleandrokruk/cleverq/internal/domain/session"
)

// ChatService is the controller contract shared by the HTML and JSON handlers.
// *chat.Service satisfies it.
type ChatService interface {
	Submit(ctx context.Context, sessionID, rawInput string) (*chat.SubmitResult, error)
	CreateTab(ctx context.Context, sessionID, name string) (bool, error)
	SelectTab(ctx context.Context, sessionID, name string) error
	State(ctx context.Context, sessionID string) (*session.State, error)
	End(ctx context.Context, sessionID string) error
}

// requestError carries an HTTP status alongside a user-facing message.
type requestError struct {
	status  int
	message string
}

func (e requestError) Error() string { return e.message }

var errMissingSession = requestError{status: http.StatusInternalServerError, message: "missing session context"}

// getSessionID retrieves the session id injected by the session middleware.
func getSessionID(ctx context.Context) (string, error) {
	id, ok := ctxkeys.String(ctx, ctxkeys.SessionID)
	if !ok {
		return "", errMissingSession
	}
	return id, nil
}

// classify maps controller errors to a status and the message shown to the user.
func classify(err error) requestError {
	var reqErr requestError
	var genErr *chat.GenerationError
	switch {
	case errors.As(err, &reqErr):
		return reqErr
	case errors.As(err, &genErr):
		return requestError{status: http.StatusBadGateway, message: GenerationNotice(genErr)}
	case errors.Is(err, chat.ErrInputTooLong):
		return requestError{
			status:  http.StatusBadRequest,
			message: fmt.Sprintf("Question is too long (maximum %d characters).", chat.MaxInputChars),
		}
	case errors.Is(err, session.ErrUnknownTab):
		return requestError{status: http.StatusNotFound, message: "unknown tab"}
	default:
		return requestError{status: http.StatusInternalServerError, message: "internal error"}
	}
}

// GenerationNotice is the line shown when the collaborator fails.
func GenerationNotice(err *chat.GenerationError) string {
	return "Error generating response: " + err.Reason()
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
