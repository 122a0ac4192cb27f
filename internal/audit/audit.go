package audit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"device-insight/internal/auth"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string          `json:"id"`
	Actor         string          `json:"actor"`
	Role          string          `json:"role"`
	Action        string          `json:"action"`
	ResourceType  string          `json:"resource_type"`
	ResourceID    string          `json:"resource_id,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	PayloadDigest string          `json:"payload_digest,omitempty"`
	IP            string          `json:"ip,omitempty"`
	UserAgent     string          `json:"user_agent,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "audit-" + hex.EncodeToString(buf)
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FromRequest builds an entry for the caller identified on r.
func FromRequest(r *http.Request, action, resourceType, resourceID string, metadata any) Entry {
	entry := Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			entry.Metadata = data
		}
	}
	if r != nil {
		ctx := r.Context()
		entry.Actor = auth.SubjectFromContext(ctx)
		entry.Role = string(auth.RoleFromContext(ctx))
		entry.IP = r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			entry.IP = forwarded
		}
		entry.UserAgent = r.UserAgent()
	}
	return entry
}
