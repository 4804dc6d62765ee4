// Package importer implements the bulk user import pipeline: row-by-row
// ingestion of an uploaded XLSX or CSV document with validation,
// dedup-against-store and a final tally. A fault opening or reading the
// container aborts the whole operation; once rows are flowing, no single
// row can fail the batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calebds/userapi/auth"
	"github.com/calebds/userapi/datastore"
	"github.com/calebds/userapi/models"
)

// Tally is the outcome of one bulk import call.
type Tally struct {
	Imported int
	Skipped  int
}

// Summary renders the tally in the response-message format.
func (t Tally) Summary() string {
	return fmt.Sprintf("Successfully registered: %d, Skipped: %d", t.Imported, t.Skipped)
}

// Importer writes valid, previously unseen rows to the user store.
type Importer struct {
	store datastore.UserStore
}

func NewImporter(store datastore.UserStore) *Importer {
	return &Importer{store: store}
}

// importRow applies the shared per-row policy: any blank field or an
// email already present in the store classifies the row as skipped.
// Rows are processed strictly sequentially, so a duplicate email later
// in the same file sees the earlier row's save and is skipped.
//
// Blank means empty or all-whitespace. The values themselves are stored
// as passed in; only the CSV path trims its fields.
func (imp *Importer) importRow(ctx context.Context, tally *Tally, username, email, password string) error {
	if isBlank(username) || isBlank(email) || isBlank(password) {
		tally.Skipped++
		return nil
	}

	_, err := imp.store.FindByEmail(ctx, email)
	if err == nil {
		tally.Skipped++
		return nil
	}
	if !errors.Is(err, datastore.ErrNotFound) {
		return fmt.Errorf("failed to check for existing user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, Email: email, PasswordHash: hash}
	if err := imp.store.Save(ctx, user); err != nil {
		if errors.Is(err, datastore.ErrDuplicateEmail) {
			// A concurrent writer won the race for this email.
			tally.Skipped++
			return nil
		}
		return fmt.Errorf("failed to save imported user: %w", err)
	}

	tally.Imported++
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func logImportComplete(format string, tally Tally) {
	slog.Info("Bulk import complete",
		"format", format,
		"imported", tally.Imported,
		"skipped", tally.Skipped,
	)
}
