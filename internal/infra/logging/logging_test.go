package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestFrom_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	if From(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
}

func TestWith_AccumulatesAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := NewContext(context.Background(), base)
	ctx = With(ctx, "request_id", "r-1")
	ctx = With(ctx, "user_id", "u-1")

	From(ctx).Info("bid placed")

	var rec map[string]any

	err := json.Unmarshal(buf.Bytes(), &rec)
	if err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}

	if rec["request_id"] != "r-1" || rec["user_id"] != "u-1" {
		t.Fatalf("missing attrs: %v", rec)
	}
}

//nolint:paralleltest
func TestSetupJSON_WithFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	closer := SetupJSON(slog.LevelDebug, filepath.Join(t.TempDir(), "api.log"))
	defer closer.Close()

	slog.Debug("written to file and stdout")
}
