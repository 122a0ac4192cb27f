package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// LogLogger writes audit entries as JSON lines to a standard logger.
type LogLogger struct {
	logger *log.Logger
	now    func() time.Time
}

// NewLogLogger constructs a LogLogger.
func NewLogLogger(logger *log.Logger) *LogLogger {
	if logger == nil {
		return nil
	}
	return &LogLogger{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Log writes an audit entry.
func (l *LogLogger) Log(ctx context.Context, entry Entry) error {
	_ = ctx
	if l == nil || l.logger == nil {
		return errors.New("audit logger: nil logger")
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	l.logger.Printf("audit %s", data)
	return nil
}
