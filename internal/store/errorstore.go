package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrorMirror copies invalid entity files into a timestamped tree that
// mirrors the partition layout, so operators can inspect known-bad records
// without touching the result store. The mirror is a report artifact; the
// reconciler re-derives the invalidated set from the store itself.
type ErrorMirror struct {
	root   string
	logger *zap.Logger
}

// NewErrorMirror returns a mirror rooted at dir.
func NewErrorMirror(root string, logger *zap.Logger) *ErrorMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorMirror{root: root, logger: logger}
}

// NewTimestampedErrorMirror returns a mirror rooted at a fresh
// errors_detected_<ts> directory under base, so successive validation
// passes never overwrite each other.
func NewTimestampedErrorMirror(base string, now time.Time, logger *zap.Logger) *ErrorMirror {
	root := filepath.Join(base, "errors_detected_"+now.Format("20060102_150405"))
	return NewErrorMirror(root, logger)
}

// Root returns the mirror directory.
func (m *ErrorMirror) Root() string { return m.root }

// Mirror copies the entity file at src into <root>/<partition>/.
func (m *ErrorMirror) Mirror(partition, src string) error {
	dir := filepath.Join(m.root, partition)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create mirror dir %s: %w", dir, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open entity %s: %w", src, err)
	}
	defer in.Close()

	dest := filepath.Join(dir, filepath.Base(src))
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create mirror copy %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy entity to %s: %w", dest, err)
	}
	m.logger.Debug("invalid entity mirrored", zap.String("dest", dest))
	return nil
}

// LogInvalid appends one verdict line to the partition's invalid log inside
// the mirror tree.
func (m *ErrorMirror) LogInvalid(partition, slug, reason string) error {
	dir := filepath.Join(m.root, partition)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create mirror dir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "invalid_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open invalid log for %s: %w", partition, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s: %s\n", slug, reason); err != nil {
		return fmt.Errorf("append invalid log for %s: %w", partition, err)
	}
	return nil
}

// WriteSummary records the pass totals at the mirror root.
func (m *ErrorMirror) WriteSummary(checked, invalid int) error {
	if err := os.MkdirAll(m.root, 0o750); err != nil {
		return fmt.Errorf("create mirror root %s: %w", m.root, err)
	}
	body := fmt.Sprintf("checked: %d\ninvalid: %d\n", checked, invalid)
	if err := os.WriteFile(filepath.Join(m.root, "summary.txt"), []byte(body), 0o600); err != nil {
		return fmt.Errorf("write validation summary: %w", err)
	}
	return nil
}
