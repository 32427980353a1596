package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/model"
)

func TestTextParser_Parse(t *testing.T) {
	data, err := os.ReadFile("../../testdata/statement.txt")
	require.NoError(t, err)

	p := &TextParser{}
	b, err := p.Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, b.Transactions, 6)

	// First: payroll
	assert.Equal(t, "NOMINA ACME SL", b.Transactions[0].Description)
	assert.Equal(t, "2100.00", b.Transactions[0].Amount.StringFixed(2))
	assert.Equal(t, model.KindIncome, b.Transactions[0].Kind)
	assert.Equal(t, model.CategoryWork, b.Transactions[0].Category)
	assert.Equal(t, model.Day(2024, time.March, 1), b.Transactions[0].Date)

	// Fourth: mortgage
	assert.Equal(t, "CUOTA PTMO HIPOTECA", b.Transactions[3].Description)
	assert.Equal(t, "-450.00", b.Transactions[3].Amount.StringFixed(2))
	assert.Equal(t, model.KindFixedExpense, b.Transactions[3].Kind)
	assert.Equal(t, model.CategoryHousing, b.Transactions[3].Category)

	// Last: investment
	last := b.Transactions[5]
	assert.Equal(t, model.KindInvestment, last.Kind)
	assert.Equal(t, model.CategoryInvestment, last.Category)

	assert.Equal(t, []string{"10/03/2024 BIZUM JUAN 20,00"}, b.Ambiguous)
	assert.Equal(t, 4, b.Skipped)
}

func TestTextParser_PreservesOrder(t *testing.T) {
	text := "03/01/2024 THIRD -3,00 1,00\n01/01/2024 FIRST -1,00 1,00\r\n02/01/2024 SECOND -2,00 1,00"
	b := (&TextParser{}).ParseString(text)
	require.Len(t, b.Transactions, 3)
	assert.Equal(t, "THIRD", b.Transactions[0].Description)
	assert.Equal(t, "FIRST", b.Transactions[1].Description)
	assert.Equal(t, "SECOND", b.Transactions[2].Description)
}

func TestTextParser_Empty(t *testing.T) {
	b, err := (&TextParser{}).Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, b.Transactions)
	assert.Empty(t, b.Ambiguous)
}

func TestTextParser_KeepsBadEscapes(t *testing.T) {
	b := (&TextParser{}).ParseString("01/02/2024 IVA 21% TIENDA -10,00 50,00")
	require.Len(t, b.Transactions, 1)
	assert.Equal(t, "IVA 21% TIENDA", b.Transactions[0].Description)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestTextParser_ReadError(t *testing.T) {
	_, err := (&TextParser{}).Parse(failingReader{})
	assert.Error(t, err)
}

func TestTextParser_Format(t *testing.T) {
	assert.Equal(t, "text", (&TextParser{}).Format())
}

func TestCSVParser_Parse(t *testing.T) {
	data, err := os.ReadFile("../../testdata/bank_export.csv")
	require.NoError(t, err)

	p := &CSVParser{}
	b, err := p.Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, b.Transactions, 4)

	assert.Equal(t, "RECIBO VODAFONE ESPAÑA", b.Transactions[1].Description)
	assert.Equal(t, "-35.00", b.Transactions[1].Amount.StringFixed(2))
	assert.Equal(t, model.CategoryCommunications, b.Transactions[1].Category)
	assert.Equal(t, model.Day(2024, time.March, 2), b.Transactions[1].Date)

	assert.True(t, b.Transactions[0].Amount.IsPositive())
	for _, txn := range b.Transactions[1:] {
		assert.True(t, txn.Amount.IsNegative(), "expected negative for %s", txn.Description)
	}
}

func TestCSVParser_NoHeader(t *testing.T) {
	b, err := (&CSVParser{}).Parse(strings.NewReader("01/03/2024;LIDL;-5,00;10,00\n"))
	require.NoError(t, err)
	require.Len(t, b.Transactions, 1)
	assert.Equal(t, model.CategorySupermarket, b.Transactions[0].Category)
}

func TestCSVParser_EmptyFile(t *testing.T) {
	b, err := (&CSVParser{}).Parse(strings.NewReader("Fecha;Concepto;Importe;Saldo\n"))
	require.NoError(t, err)
	assert.Nil(t, b.Transactions)
}

func TestCSVParser_ZeroAmount(t *testing.T) {
	b, err := (&CSVParser{}).Parse(strings.NewReader("01/03/2024;AJUSTE;0,00;10,00\n"))
	require.NoError(t, err)
	assert.Empty(t, b.Transactions)
	assert.Equal(t, 1, b.Skipped)
}

func TestCSVParser_BadDate(t *testing.T) {
	csv := "Fecha;Concepto;Importe;Saldo\nNOTADATE;desc;-4,00;100,00\n"
	_, err := (&CSVParser{}).Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing date")
	assert.ErrorIs(t, err, apperr.ErrParse)
}

func TestCSVParser_BadAmount(t *testing.T) {
	csv := "Fecha;Concepto;Importe;Saldo\n01/03/2025;desc;NOTANUMBER;100,00\n"
	_, err := (&CSVParser{}).Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing amount")
}

func TestCSVParser_ErrorRowNumbers(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantRow string
	}{
		{"with header", "Fecha;Concepto;Importe;Saldo\n01/03/2025;ok;-1,00;1,00\n01/03/2025;bad;x;1,00\n", "row 3:"},
		{"without header", "01/03/2025;ok;-1,00;1,00\n01/03/2025;bad;x;1,00\n", "row 2:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&CSVParser{}).Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantRow)
		})
	}
}

func TestCSVParser_WrongFieldCount(t *testing.T) {
	_, err := (&CSVParser{}).Parse(strings.NewReader("01/03/2025;desc;-1,00\n"))
	assert.ErrorIs(t, err, apperr.ErrParse)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&CSVParser{})
	p := r.Get("csv")
	require.NotNil(t, p)
	assert.Equal(t, "csv", p.Format())
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&TextParser{})
	assert.NotNil(t, r.Get("Text"))
	assert.NotNil(t, r.Get("TEXT"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&TextParser{})
	assert.Panics(t, func() { r.Register(&TextParser{}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("text"))
	assert.NotNil(t, r.Get("csv"))
}

func TestScan_FindsStatements(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "march.pdf"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "export.CSV"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "export.CSV", files[0].Name)
	assert.Equal(t, "csv", files[0].Kind)
	assert.Equal(t, "march.pdf", files[1].Name)
	assert.Equal(t, "pdf", files[1].Kind)
	assert.Equal(t, int64(4), files[1].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	require.NoError(t, os.MkdirAll(processed, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.pdf"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processed, "old.pdf"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "new.pdf", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "inbox"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "march.pdf"), []byte("data"), 0o644))

	err := MarkProcessed(dir, "march.pdf")
	require.NoError(t, err)

	// Source gone.
	_, err = os.Stat(filepath.Join(dir, "march.pdf"))
	assert.True(t, os.IsNotExist(err))

	// Destination exists.
	info, err := os.Stat(filepath.Join(dir, "processed", "march.pdf"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestMarkProcessed_MissingFile(t *testing.T) {
	err := MarkProcessed(t.TempDir(), "nope.pdf")
	assert.Error(t, err)
}
