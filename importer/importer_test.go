package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/calebds/userapi/auth"
	"github.com/calebds/userapi/datastore"
	"github.com/calebds/userapi/models"
)

const csvHeader = "username,email,password\n"

// xlsxDocument builds an in-memory workbook with a header row followed
// by the given data rows.
func xlsxDocument(t *testing.T, rows [][]any) io.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"username", "email", "password"}))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestImportCSV_ValidRow(t *testing.T) {
	t.Parallel()
	store := datastore.NewMemoryStore()
	imp := NewImporter(store)

	tally, err := imp.ImportCSV(context.Background(), strings.NewReader(csvHeader+"john, john@example.com ,pass123\n"))
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 1, Skipped: 0}, tally)
	assert.Equal(t, "Successfully registered: 1, Skipped: 0", tally.Summary())

	// Fields are trimmed and the password is stored hashed.
	user, err := store.FindByEmail(context.Background(), "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, "john", user.Username)
	assert.NotEqual(t, "pass123", user.PasswordHash)
	assert.True(t, auth.CheckPassword("pass123", user.PasswordHash))
}

func TestImportCSV_ShortRow(t *testing.T) {
	t.Parallel()
	imp := NewImporter(datastore.NewMemoryStore())

	tally, err := imp.ImportCSV(context.Background(), strings.NewReader(csvHeader+"john,john@example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 0, Skipped: 1}, tally)
}

func TestImportCSV_BlankField(t *testing.T) {
	t.Parallel()
	imp := NewImporter(datastore.NewMemoryStore())

	tally, err := imp.ImportCSV(context.Background(), strings.NewReader(csvHeader+"john,   ,pass123\n"))
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 0, Skipped: 1}, tally)
}

func TestImportCSV_DuplicateAgainstStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastore.NewMemoryStore()
	existing := &models.User{Username: "john", Email: "john@example.com", PasswordHash: "h"}
	require.NoError(t, store.Save(ctx, existing))

	imp := NewImporter(store)
	tally, err := imp.ImportCSV(ctx, strings.NewReader(csvHeader+"john,john@example.com,pass123\n"))
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 0, Skipped: 1}, tally)

	// The existing record is untouched.
	got, err := store.FindByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
}

func TestImportCSV_DuplicateWithinBatch(t *testing.T) {
	t.Parallel()
	store := datastore.NewMemoryStore()
	imp := NewImporter(store)

	// Rows run sequentially, so the first occurrence lands in the store
	// before the second occurrence is checked.
	doc := csvHeader +
		"john,john@example.com,pass123\n" +
		"johnny,john@example.com,pass456\n"
	tally, err := imp.ImportCSV(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 1, Skipped: 1}, tally)
}

func TestImportCSV_LineLongerThanDefaultScannerLimit(t *testing.T) {
	t.Parallel()
	store := datastore.NewMemoryStore()
	imp := NewImporter(store)

	// A username well past bufio's default 64 KiB token limit must not
	// fail the batch.
	longName := strings.Repeat("x", 100*1024)
	doc := csvHeader + longName + ",long@example.com,pass123\n"
	tally, err := imp.ImportCSV(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 1, Skipped: 0}, tally)

	user, err := store.FindByEmail(context.Background(), "long@example.com")
	require.NoError(t, err)
	assert.Equal(t, longName, user.Username)
}

func TestImportCSV_HeaderOnly(t *testing.T) {
	t.Parallel()
	imp := NewImporter(datastore.NewMemoryStore())

	tally, err := imp.ImportCSV(context.Background(), strings.NewReader(csvHeader))
	require.NoError(t, err)
	assert.Equal(t, Tally{}, tally)
	assert.Equal(t, "Successfully registered: 0, Skipped: 0", tally.Summary())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("stream exploded")
}

func TestImportCSV_ReadFault(t *testing.T) {
	t.Parallel()
	store := datastore.NewMemoryStore()
	imp := NewImporter(store)

	tally, err := imp.ImportCSV(context.Background(), failingReader{})
	assert.Error(t, err)
	assert.Equal(t, Tally{}, tally)

	// No partial state: nothing was written.
	users, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestImportXLSX_ValidRow(t *testing.T) {
	t.Parallel()
	store := datastore.NewMemoryStore()
	imp := NewImporter(store)

	doc := xlsxDocument(t, [][]any{{"jane", "jane@example.com", "pass123"}})
	tally, err := imp.ImportXLSX(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 1, Skipped: 0}, tally)

	user, err := store.FindByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("pass123", user.PasswordHash))
}

func TestImportXLSX_MissingCellAndBlanks(t *testing.T) {
	t.Parallel()
	imp := NewImporter(datastore.NewMemoryStore())

	doc := xlsxDocument(t, [][]any{
		{"jane", "jane@example.com"},        // short row
		{"", "blank@example.com", "pass"},   // blank username
		{"joe", "joe@example.com", "p4ss"},  // valid
		{"mia", "mia@example.com", "   "},   // whitespace-only password
	})
	tally, err := imp.ImportXLSX(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 1, Skipped: 3}, tally)
}

func TestImportXLSX_DuplicateAgainstStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := datastore.NewMemoryStore()
	require.NoError(t, store.Save(ctx, &models.User{Username: "jane", Email: "jane@example.com", PasswordHash: "h"}))

	imp := NewImporter(store)
	doc := xlsxDocument(t, [][]any{{"jane", "jane@example.com", "pass123"}})
	tally, err := imp.ImportXLSX(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, Tally{Imported: 0, Skipped: 1}, tally)
}

func TestImportXLSX_UnreadableContainer(t *testing.T) {
	t.Parallel()
	store := datastore.NewMemoryStore()
	imp := NewImporter(store)

	tally, err := imp.ImportXLSX(context.Background(), strings.NewReader("this is not a workbook"))
	assert.Error(t, err)
	assert.Equal(t, Tally{}, tally)

	users, listErr := store.ListAll(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, users)
}
