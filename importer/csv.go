package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes caps a single CSV line. The scanner's default 64 KiB
// token limit would fail the whole batch on one oversized line.
const maxLineBytes = 1 << 20 // 1 MiB

// ImportCSV reads a comma-delimited text upload line by line. The header
// line is skipped unconditionally; fields are split on commas and
// trimmed of surrounding whitespace. A line with fewer than three fields
// is skipped.
//
// The split is deliberately naive (no quote handling): a quote-aware
// reader turns a malformed quote on one line into a stream fault, which
// would abort the batch instead of skipping the row.
func (imp *Importer) ImportCSV(ctx context.Context, r io.Reader) (Tally, error) {
	var tally Tally

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}

		fields := strings.Split(scanner.Text(), ",")
		if len(fields) < 3 {
			tally.Skipped++
			continue
		}

		username := strings.TrimSpace(fields[0])
		email := strings.TrimSpace(fields[1])
		password := strings.TrimSpace(fields[2])

		if err := imp.importRow(ctx, &tally, username, email, password); err != nil {
			return Tally{}, err
		}
	}
	if err := scanner.Err(); err != nil {
		return Tally{}, fmt.Errorf("failed to read upload: %w", err)
	}

	logImportComplete("csv", tally)
	return tally, nil
}
