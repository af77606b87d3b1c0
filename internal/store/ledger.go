package store

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ledgerFile is the per-partition ledger filename. Historical runs may leave
// several ledger trees behind; ReadAll walks them all.
const ledgerFile = "link.txt"

// FSLedger is the append-only record of permanently timed-out URLs, one raw
// URL per line, scoped by partition under <root>/<partition>/link.txt.
// Entries are never deleted and duplicates are expected; readers collapse
// the multiset to a set.
type FSLedger struct {
	root   string
	logger *zap.Logger
}

// NewFSLedger returns a ledger rooted at dir. The directory is created
// lazily on first append so a read-only reconciliation pass never creates
// empty trees.
func NewFSLedger(root string, logger *zap.Logger) *FSLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSLedger{root: root, logger: logger}
}

// Append records one exhausted URL. The line is written with a single Write
// through O_APPEND so concurrent workers never interleave partial lines.
func (l *FSLedger) Append(partition, url string) error {
	dir := filepath.Join(l.root, partition)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create ledger dir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, ledgerFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger for %s: %w", partition, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(url + "\n")); err != nil {
		return fmt.Errorf("append ledger for %s: %w", partition, err)
	}
	return nil
}

// ReadAll walks every ledger under the root and returns the deduplicated
// union of recorded URLs. A missing root degrades to an empty set with a
// diagnostic; the reconciliation pass must never abort on absent inputs.
func (l *FSLedger) ReadAll() (map[string]struct{}, error) {
	urls := make(map[string]struct{})

	if _, err := os.Stat(l.root); os.IsNotExist(err) {
		l.logger.Info("ledger root missing, treating as empty", zap.String("root", l.root))
		return urls, nil
	}

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(d.Name(), ledgerFile) {
			return nil
		}
		if rerr := readLedgerFile(path, urls); rerr != nil {
			l.logger.Warn("skipping unreadable ledger", zap.String("path", path), zap.Error(rerr))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk ledgers under %s: %w", l.root, err)
	}
	return urls, nil
}

func readLedgerFile(path string, urls map[string]struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "http") {
			urls[line] = struct{}{}
		}
	}
	return scanner.Err()
}
