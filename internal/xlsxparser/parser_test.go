package xlsxparser

import (
	"testing"

	"github.com/ginjaninja78/freight-survey-ingest/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Unreadable(t *testing.T) {
	_, err := Open([]byte("definitely not a zip"))
	assert.ErrorIs(t, err, ErrUnreadable)

	_, err = Open(nil)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestWorkbook_SheetsAndRecords(t *testing.T) {
	data := testutil.Workbook(t,
		testutil.Sheet{Name: "VoertuigsoortRDW", Rows: [][]interface{}{
			{"code", "omschrijving"},
			{1, " Bestelauto "},
			{},
			{2, "Vrachtauto"},
		}},
		testutil.Sheet{Name: "Brandstofsoort", Rows: [][]interface{}{
			{"code", "omschrijving"},
		}},
	)

	wb, err := Open(data)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"VoertuigsoortRDW", "Brandstofsoort"}, wb.SheetNames())
	assert.Equal(t, "VoertuigsoortRDW", wb.FirstSheet())
	assert.True(t, wb.HasSheet("voertuigsoortrdw"))
	assert.False(t, wb.HasSheet("NUTS3"))

	headers, records, err := wb.Records("VoertuigsoortRDW")
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "omschrijving"}, headers)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0]["code"])
	assert.Equal(t, "Bestelauto", records[0]["omschrijving"])
	assert.Equal(t, "Vrachtauto", records[1]["omschrijving"])

	_, records, err = wb.Records("Brandstofsoort")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWorkbook_Rows(t *testing.T) {
	data := testutil.Workbook(t, testutil.Sheet{Name: "Zendingen", Rows: [][]interface{}{
		{"Variabele", "code", "omschrijving"},
		{nil, "1", "aa"},
	}})

	wb, err := Open(data)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.Rows("Zendingen")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", Cell(rows[1], 0))
	assert.Equal(t, "aa", Cell(rows[1], 2))
	assert.Equal(t, "", Cell(rows[1], 9))

	_, err = wb.Rows("Missing")
	assert.ErrorIs(t, err, ErrNoSheet)
}
