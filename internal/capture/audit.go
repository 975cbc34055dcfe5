package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wiretap-labs/wiretap/internal/utils"
)

// AuditLog appends exchange records to a JSONL file, one self-contained
// record per line. The file grows unbounded and is never rotated or
// truncated here; unlike the history it survives restarts.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog prepares the log at path, creating parent directories and
// an empty file so the audit trail is visible before the first request.
func NewAuditLog(path string) (*AuditLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create audit log dir: %w", err)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create audit log: %w", err)
		}
		_ = f.Close()
	}
	return &AuditLog{path: path}, nil
}

// Append serializes rec and appends it as one line. The mutex keeps
// concurrent writers from interleaving mid-record. Errors are returned
// for the caller to log; the relay path must never fail on them.
func (a *AuditLog) Append(rec ExchangeRecord) error {
	data, err := utils.MarshalNoEscape(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(data)
	return err
}

// Path returns the configured log file path.
func (a *AuditLog) Path() string { return a.path }
