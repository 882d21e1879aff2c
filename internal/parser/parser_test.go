package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikisoft/rosterval/internal/domain"
)

func TestParse_DelimitedCSV_BasicRoster(t *testing.T) {
	data := []byte("사원번호,성명,생년월일\n1001,김철수,19900101\n1002,이영희,19850505\n")

	wb, err := Parse(data, Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"사원번호", "성명", "생년월일"}, wb.Headers)
	require.Len(t, wb.Rows, 2)
	assert.Equal(t, 2, wb.Rows[0].Number, "header row is row 1, so the first data row is numbered 2")
	assert.Equal(t, "1001", wb.Rows[0].Cells[0])
}

func TestParse_TSV_DetectedByTabDelimiter(t *testing.T) {
	data := []byte("사원번호\t성명\n1001\t김철수\n")

	wb, err := Parse(data, Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"사원번호", "성명"}, wb.Headers)
	require.Len(t, wb.Rows, 1)
}

func TestParse_NoHeaderRow_IsError(t *testing.T) {
	_, err := Parse([]byte(""), Options{})
	require.Error(t, err)
}

func TestParse_EmptyRowsSkipped(t *testing.T) {
	data := []byte("사원번호,성명\n1001,김철수\n,\n1002,이영희\n")

	wb, err := Parse(data, Options{})

	require.NoError(t, err)
	assert.Len(t, wb.Rows, 2)
	assert.Equal(t, 1, wb.Meta.EmptyRowsSkipped)
}

func TestParse_RowCapApplied(t *testing.T) {
	data := []byte("사원번호,성명\n1001,김철수\n1002,이영희\n1003,박민수\n")

	wb, err := Parse(data, Options{RowCap: 2})

	require.NoError(t, err)
	assert.Len(t, wb.Rows, 2)
	assert.True(t, wb.Meta.RowCapApplied)
}

func TestParse_IdentifierFloatArtifactStripped(t *testing.T) {
	data := []byte("사원번호,성명\n1001.0,김철수\n")

	wb, err := Parse(data, Options{})

	require.NoError(t, err)
	assert.Equal(t, "1001", wb.Rows[0].Cells[0])
}

func TestParse_HeaderAnnotationsStripped(t *testing.T) {
	data := []byte("생년월일(YYYYMMDD),성명\n19900101,김철수\n")

	wb, err := Parse(data, Options{})

	require.NoError(t, err)
	assert.Equal(t, "생년월일", wb.Headers[0])
}

func TestParse_DateColumnNormalized(t *testing.T) {
	data := []byte("사원번호,생년월일\n1001,1990-01-01\n")

	wb, err := Parse(data, Options{})

	require.NoError(t, err)
	assert.Equal(t, "19900101", wb.Rows[0].Cells[1])
}

func TestClassify_XLSXMagicBytes(t *testing.T) {
	assert.Equal(t, domain.ParserXLSX, Classify([]byte{'P', 'K', 0x03, 0x04, 0, 0}))
}

func TestClassify_OLEMagicBytes(t *testing.T) {
	assert.Equal(t, domain.ParserLegacyOLE, Classify([]byte{0xD0, 0xCF, 0, 0}))
}

func TestClassify_DefaultsToDelimited(t *testing.T) {
	assert.Equal(t, domain.ParserDelimited, Classify([]byte("a,b,c\n")))
}

func TestNormalizeDate_EightDigits(t *testing.T) {
	got, ok := NormalizeDate("19900101")
	require.True(t, ok)
	assert.Equal(t, "19900101", got)
}

func TestNormalizeDate_SixDigits_CenturyPivot(t *testing.T) {
	got, ok := NormalizeDate("900101")
	require.True(t, ok)
	assert.Equal(t, "19900101", got)

	got, ok = NormalizeDate("300101")
	require.True(t, ok)
	assert.Equal(t, "20300101", got)
}

func TestNormalizeDate_SeparatedFormats(t *testing.T) {
	got, ok := NormalizeDate("1990-01-01")
	require.True(t, ok)
	assert.Equal(t, "19900101", got)

	got, ok = NormalizeDate("1990/01/01")
	require.True(t, ok)
	assert.Equal(t, "19900101", got)
}

func TestNormalizeDate_ExcelSerial(t *testing.T) {
	got, ok := NormalizeDate("33970")
	require.True(t, ok)
	assert.Equal(t, "19930101", got)
}

func TestNormalizeDate_ImpossibleDate_IsRejected(t *testing.T) {
	_, ok := NormalizeDate("19902301")
	assert.False(t, ok)
}

func TestNormalizeDate_Empty_IsRejected(t *testing.T) {
	_, ok := NormalizeDate("")
	assert.False(t, ok)
}

func TestParseYYYYMMDD_RoundTrips(t *testing.T) {
	tm, ok := ParseYYYYMMDD("19900101")
	require.True(t, ok)
	assert.Equal(t, 1990, tm.Year())
	assert.Equal(t, 1, int(tm.Month()))
	assert.Equal(t, 1, tm.Day())
}
