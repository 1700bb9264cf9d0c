package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HostLog appends activity lines to the shared per-host log file,
// logs/<host>_<date>.log, one file per host per day. Each line is
// "<ISO8601 timestamp> - <message>".
//
// Appends are best-effort: a failed write is dropped, never surfaced
// to the queue operation that triggered it.
type HostLog struct {
	mu   sync.Mutex
	dir  string
	host string
	now  func() time.Time
}

// NewHostLog creates a host log writer rooted at dir for the given host.
func NewHostLog(dir, host string) *HostLog {
	os.MkdirAll(dir, 0o755)
	return &HostLog{
		dir:  dir,
		host: host,
		now:  time.Now,
	}
}

// Append writes a single message line. Errors are swallowed.
// A nil HostLog is a no-op, so callers without a shared directory can
// skip the nil check.
func (h *HostLog) Append(message string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	path := filepath.Join(h.dir, fmt.Sprintf("%s_%s.log", h.host, now.Format("20060102")))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "%s - %s\n", now.Format(time.RFC3339), message)
}

// Appendf formats and writes a single message line.
func (h *HostLog) Appendf(format string, args ...interface{}) {
	h.Append(fmt.Sprintf(format, args...))
}
