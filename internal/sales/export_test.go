package sales

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteCSV(t *testing.T) {
	sales := []Sale{
		{ID: 1, Title: `Coffret "Été"`, Qty: 2, Price: 12.5, Payment: PaymentCard, Date: at(2025, time.March, 2, 18, 0)},
		{ID: 2, Title: "Savon, lavande", Qty: 3, Price: 3.1, Payment: PaymentCash, Date: at(2025, time.March, 12, 8, 30)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sales, time.UTC))

	want := "Date,Produit,Quantité,Paiement,Total (€)\n" +
		`02/03/2025,"Coffret ""Été""",2,Carte,25` + "\n" +
		`12/03/2025,"Savon, lavande",3,Espèces,9.3` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, nil))
	assert.Equal(t, "Date,Produit,Quantité,Paiement,Total (€)\n", buf.String())
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "ventes_week.csv", ExportFileName(WindowWeek, "csv"))
	assert.Equal(t, "ventes_all.xlsx", ExportFileName(ParseWindow("nope"), "xlsx"))
}

func TestWriteXLSX(t *testing.T) {
	sales := []Sale{
		{ID: 1, Title: "Parfum", Qty: 2, Price: 45, Payment: PaymentCard, Date: at(2025, time.March, 10, 9, 0)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sales, time.UTC))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(XLSXSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ExportHeader, rows[0])
	assert.Equal(t, []string{"10/03/2025", "Parfum", "2", "Carte", "90"}, rows[1])
}

func TestEuro(t *testing.T) {
	assert.Contains(t, Euro(dec("12.5")), "€")
	assert.Contains(t, Euro(dec("12.5")), "12")
	assert.Contains(t, Euro(dec("0")), "0")
}
