package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"device-insight/internal/auth"
)

func TestLogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogLogger(log.New(&buf, "", 0))

	entry := Entry{Actor: "user-1", Action: "export", ResourceType: "tier_report", Metadata: json.RawMessage(`{"format":"xlsx"}`)}
	if err := logger.Log(context.Background(), entry); err != nil {
		t.Fatalf("log: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "audit ") {
		t.Fatalf("unexpected line %q", line)
	}
	var got Entry
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "audit ")), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(got.ID, "audit-") || got.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", got)
	}
	if got.PayloadDigest != DigestJSON([]byte(`{"format":"xlsx"}`)) {
		t.Fatalf("unexpected digest %s", got.PayloadDigest)
	}
}

func TestNilLogLogger(t *testing.T) {
	if NewLogLogger(nil) != nil {
		t.Fatalf("expected nil logger for nil input")
	}
	var logger *LogLogger
	if err := logger.Log(context.Background(), Entry{}); err == nil {
		t.Fatalf("expected error from nil logger")
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/exports/devices.csv", nil)
	req.Header.Set("User-Agent", "curl/8")
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.RoleOperator, "user-9"))

	entry := FromRequest(req, "export", "devices", "", map[string]string{"format": "csv"})
	if entry.Actor != "user-9" || entry.Role != "operator" {
		t.Fatalf("unexpected identity %+v", entry)
	}
	if entry.UserAgent != "curl/8" || string(entry.Metadata) != `{"format":"csv"}` {
		t.Fatalf("unexpected entry %+v", entry)
	}

	anon := FromRequest(httptest.NewRequest("GET", "/", nil), "export", "devices", "", nil)
	if anon.Actor != "anonymous" || anon.Metadata != nil {
		t.Fatalf("unexpected anonymous entry %+v", anon)
	}
}

func TestDigestJSON(t *testing.T) {
	if DigestJSON(nil) != "" {
		t.Fatalf("expected empty digest")
	}
	if len(DigestJSON([]byte("{}"))) != 64 {
		t.Fatalf("expected hex sha256")
	}
}
