package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	allWorkFile = "ALL_CRAWL_AGAIN.txt"
	sheetName   = "Crawl Again Report"
)

// WriteWorkLists materializes the next campaign's targets under dir: one
// <partition>/<partition>_links.txt per partition with pending work, plus a
// flat ALL_CRAWL_AGAIN.txt aggregate. The layout mirrors a campaign source
// directory so the output can feed the next run directly.
func WriteWorkLists(report *Report, dir string) error {
	for partition, urls := range report.NextWork {
		if len(urls) == 0 {
			continue
		}
		partDir := filepath.Join(dir, partition)
		if err := os.MkdirAll(partDir, 0o750); err != nil {
			return fmt.Errorf("create work list dir for %s: %w", partition, err)
		}
		path := filepath.Join(partDir, partition+"_links.txt")
		body := strings.Join(urls, "\n") + "\n"
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			return fmt.Errorf("write work list for %s: %w", partition, err)
		}
	}

	all := report.AllWork()
	if len(all) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create work list dir: %w", err)
	}
	body := strings.Join(all, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, allWorkFile), []byte(body), 0o600); err != nil {
		return fmt.Errorf("write aggregate work list: %w", err)
	}
	return nil
}

// WriteWorkbook renders the report rows as a single-sheet xlsx for operator
// review. Rows keep their reconciliation order.
func WriteWorkbook(report *Report, path string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err = f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename report sheet: %w", err)
	}
	if err = f.SetSheetRow(sheetName, "A1", &[]any{"Partition", "URL", "Classification", "Note"}); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for _, width := range []struct {
		col string
		w   float64
	}{
		{"A", 22},
		{"B", 95},
		{"C", 20},
		{"D", 70},
	} {
		if err = f.SetColWidth(sheetName, width.col, width.col, width.w); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, row := range report.Rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := []any{row.Partition, row.URL, string(row.Class), row.Note}
		if err = f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write report row %d: %w", i+2, err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err = f.SaveAs(path); err != nil {
		return fmt.Errorf("save report workbook: %w", err)
	}
	return nil
}
