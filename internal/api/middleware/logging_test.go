package middleware_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"pkt.systems/pslog"

	"github.com/matiasleandrokruk/cleverq/internal/api/middleware"
)

func captureLogger(buf *bytes.Buffer) pslog.Logger {
	return pslog.NewWithOptions(buf, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		VerboseFields: true,
		MinLevel:      pslog.DebugLevel,
	})
}

func TestRequestLogger_LogsStatusAndSession(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	signer := mustSigner(t, "k", time.Hour)
	tok, err := signer.Issue("sess-log")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout")) //nolint:errcheck
	})
	handler := chimw.RequestID(middleware.RequestLogger(middleware.Session(signer)(inner)))

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: tok})
	req = req.WithContext(pslog.ContextWithLogger(context.Background(), captureLogger(&buf)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
	out := buf.String()
	for _, want := range []string{"http request", "/submit", "418", "sess-log", "request_id"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestRequestLogger_DefaultStatusOK(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := middleware.RequestLogger(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = req.WithContext(pslog.ContextWithLogger(context.Background(), captureLogger(&buf)))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "200") {
		t.Errorf("expected status 200 in log:\n%s", buf.String())
	}
}
