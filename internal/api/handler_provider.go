package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxBodyBytes = 1 << 20

// Options carry the non-service settings the handlers need.
type Options struct {
	Auth          *Authenticator
	StripeSecret  string
	EntryFeeGrant int64 // minor units granted per paid stream entry

	// AllowedOrigins limits websocket upgrades by Origin header.
	// Empty allows any origin.
	AllowedOrigins []string
}

// HandlerProvider wraps the services and exposes HTTP handlers.
type HandlerProvider struct {
	svc      Services
	opts     Options
	upgrader websocket.Upgrader
}

// NewHandler returns a new Handler provider.
func NewHandler(svc Services, opts Options) *HandlerProvider {
	return &HandlerProvider{svc: svc, opts: opts, upgrader: newUpgrader(opts.AllowedOrigins)}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}

// decodeBody reads a JSON body into dst, rejecting unknown fields and bodies
// over 1MB. An empty body is allowed when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}

			return validate.Errorf("body", "empty body")
		}

		return validate.Errorf("body", "invalid JSON")
	}

	return nil
}

// uuidParam reads a uuid path parameter, e.g. `{slotId}` in
//
//	POST /slots/{slotId}/bids
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, validate.Errorf(name, "missing")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, validate.Errorf(name, "must be a uuid")
	}

	return id, nil
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, validate.Errorf(name, "must be an integer")
	}

	return n, nil
}

// queryInt reads an optional integer query parameter; def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validate.Errorf(name, "must be an integer")
	}

	return n, nil
}

// parseAmountCents converts a decimal string with up to 2 fractional digits into cents.
func parseAmountCents(s string) (int64, error) {
	total, err := parseMinor("amount", s)
	if err != nil {
		return 0, err
	}

	if total <= 0 {
		return 0, validate.Errorf("amount", "must be > 0")
	}

	return total, nil
}

// parseOptionalAmount is parseAmountCents for settings where blank means
// "use the default" and zero is allowed.
func parseOptionalAmount(field, s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}

	total, err := parseMinor(field, s)
	if err != nil {
		return 0, err
	}

	if total < 0 {
		return 0, validate.Errorf(field, "must not be negative")
	}

	return total, nil
}

func parseMinor(field, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, validate.Errorf(field, "required")
	}

	neg := false
	if s[0] == '+' {
		s = s[1:]
	} else if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 || !isDigits(parts[0]) {
		return 0, validate.Errorf(field, "invalid amount")
	}

	frac := "00"
	if len(parts) == 2 {
		if !isDigits(parts[1]) || len(parts[1]) > 2 {
			return 0, validate.Errorf(field, "supports up to 2 decimals")
		}

		frac = parts[1] + strings.Repeat("0", 2-len(parts[1]))
	}

	ip, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || ip > (math.MaxInt64-99)/100 {
		return 0, validate.Errorf(field, "amount out of range")
	}

	fp, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, validate.Errorf(field, "invalid amount fractional")
	}

	total := ip*100 + fp
	if neg {
		total = -total
	}

	return total, nil
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// formatAmount renders minor units as a 2-decimal string.
func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}

	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func formatAmountPtr(minor *int64) *string {
	if minor == nil {
		return nil
	}

	s := formatAmount(*minor)

	return &s
}
