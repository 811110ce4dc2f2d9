package csvparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SemicolonWithQuotedHeaders(t *testing.T) {
	input := "\ufeff\"jaar\";\"laadNuts3\"; zendingAantal \n2023;NL329;10\n\n2023;DE100;5\n"

	data, err := Parse([]byte(input), "zendingen.csv", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"jaar", "laadNuts3", "zendingAantal"}, data.Headers)
	require.Equal(t, 2, data.RowCount())
	assert.Equal(t, "NL329", data.Rows[0]["laadNuts3"])
	assert.Equal(t, "5", data.Rows[1]["zendingAantal"])
	assert.True(t, data.Report.Empty())
}

func TestParse_ReportsShortRowsAndContinues(t *testing.T) {
	input := "a;b;c\n1;2;3\n4;5\n6;7;8\n"

	data, err := Parse([]byte(input), "short.csv", ';')
	require.NoError(t, err)

	require.Equal(t, 3, data.RowCount())
	assert.Equal(t, "", data.Rows[1]["c"])
	assert.Equal(t, "8", data.Rows[2]["c"])

	require.Len(t, data.Report.Issues, 1)
	assert.Equal(t, 2, data.Report.Issues[0].Row)
	assert.Contains(t, data.Report.Issues[0].Message, "expected 3 fields, got 2")
}

func TestParse_EmptyHeaderGetsPlaceholder(t *testing.T) {
	data, err := Parse([]byte("a;;c\n1;2;3\n"), "x.csv", ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Column_2", "c"}, data.Headers)
}

func TestParse_NoHeader(t *testing.T) {
	_, err := Parse([]byte("\n\n"), "empty.csv", ';')
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestPeek(t *testing.T) {
	headers, first, err := Peek([]byte("jaar;aantalDeelritten\n2022;3\n2022;4\n"), ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"jaar", "aantalDeelritten"}, headers)
	require.NotNil(t, first)
	assert.Equal(t, "2022", first["jaar"])

	headers, first, err = Peek([]byte("gemCode;gemNaam\n"), ';')
	require.NoError(t, err)
	assert.Len(t, headers, 2)
	assert.Nil(t, first)
}

func TestHasColumn(t *testing.T) {
	assert.True(t, HasColumn([]string{"a", "b"}, "b"))
	assert.False(t, HasColumn([]string{"a", "b"}, "B"))
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  float64
	}{
		{name: "dutch scientific", input: "2,6e+07", want: 2.6e7},
		{name: "dutch decimal", input: "12,5", want: 12.5},
		{name: "thousands and decimal", input: "1.234,5", want: 1234.5},
		{name: "plain decimal", input: "3.75", want: 3.75},
		{name: "padded", input: "  42 ", want: 42},
		{name: "garbage", input: "bogus", want: 0},
		{name: "empty", input: "", want: 0},
		{name: "nan string", input: "NaN", want: 0},
		{name: "overflow", input: "1e400", want: 0},
		{name: "int", input: 42, want: 42},
		{name: "float", input: 1.5, want: 1.5},
		{name: "nil", input: nil, want: 0},
		{name: "unsupported type", input: struct{}{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.input))
		})
	}
}

func TestIntAndFlag(t *testing.T) {
	assert.Equal(t, 2023, Int("2023"))
	assert.Equal(t, 0, Int("n/a"))
	assert.True(t, Flag("1"))
	assert.False(t, Flag("0"))
	assert.False(t, Flag(""))
}
