package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AuditSink persists bypass records.
type AuditSink interface {
	Record(ctx context.Context, rec BypassRecord) error
}

// FileAuditSink appends bypass records to a JSON lines file.
type FileAuditSink struct {
	mu   sync.Mutex
	path string
}

// NewFileAuditSink returns a sink writing to path. The file and its parent
// directory are created on first write.
func NewFileAuditSink(path string) *FileAuditSink {
	return &FileAuditSink{path: filepath.Clean(path)}
}

// Path returns the audit log location.
func (s *FileAuditSink) Path() string {
	return s.path
}

// Record appends rec as one JSON line.
func (s *FileAuditSink) Record(ctx context.Context, rec BypassRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode bypass record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	return f.Close()
}

// ReadAuditLog decodes every record of a JSON lines audit file.
func ReadAuditLog(path string) ([]BypassRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []BypassRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec BypassRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode audit log: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
