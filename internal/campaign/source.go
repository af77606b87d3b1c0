// Package campaign orchestrates one harvesting run: loading partition
// target sets, assigning work to a bounded pool of session-owning workers,
// and aggregating per-partition summaries.
package campaign

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

// LoadPartitions reads the campaign's target sets from sourceDir. Every
// subdirectory is one partition; every .txt file inside contributes one URL
// per line. Only lines starting with "http" count. Order is preserved and
// duplicates are dropped, making each target set an ordered set for the
// whole campaign.
func LoadPartitions(sourceDir string, logger *zap.Logger) ([]harvest.Partition, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", sourceDir, err)
	}

	var partitions []harvest.Partition
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		targets, err := loadTargets(filepath.Join(sourceDir, name))
		if err != nil {
			return nil, fmt.Errorf("load partition %s: %w", name, err)
		}
		if len(targets) == 0 {
			logger.Warn("partition has no target URLs, skipping", zap.String("partition", name))
			continue
		}
		partitions = append(partitions, harvest.Partition{Name: name, Targets: targets})
	}

	sort.Slice(partitions, func(i, j int) bool { return partitions[i].Name < partitions[j].Name })
	return partitions, nil
}

func loadTargets(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	seen := make(map[string]struct{})
	var targets []string
	for _, file := range files {
		urls, err := readURLLines(file)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			targets = append(targets, u)
		}
	}
	return targets, nil
}

func readURLLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "http") {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return urls, nil
}
