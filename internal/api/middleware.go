package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// requestInfo is filled in by inner handlers for the access log line.
type requestInfo struct {
	userID uuid.UUID
}

type requestInfoKey struct{}

// requestLogger attaches the request id to the request logger and writes one
// access log line per request. It must run after middleware.RequestID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		info := &requestInfo{}
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
		ctx = logging.With(ctx, "request_id", middleware.GetReqID(ctx))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		log := logging.From(ctx)
		if info.userID != uuid.Nil {
			log = log.With("user_id", info.userID)
		}

		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
