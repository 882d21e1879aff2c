// Package parser implements the Parser (C2): decoding uploaded
// spreadsheet bytes into headers, rows and bookkeeping metadata.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	domerr "github.com/wikisoft/rosterval/internal/domain/errors"

	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/schema"
)

var (
	xlsxMagic  = []byte{'P', 'K', 0x03, 0x04}
	oleMagic   = []byte{0xD0, 0xCF}
	bracketAnn = regexp.MustCompile(`[\(\（\[][^\)\）\]]*[\)\）\]]`)
	whitespace = regexp.MustCompile(`[\s\x{3000}]+`)
)

var descriptionKeywords = []string{"※", "양식", "입력", "작성", "예시", "example"}

// Options configures a Parse call.
type Options struct {
	RowCap int // default 5000 if zero
}

func (o Options) rowCap() int {
	if o.RowCap <= 0 {
		return 5000
	}
	return o.RowCap
}

// Classify identifies the workbook kind from its magic bytes.
func Classify(data []byte) domain.ParserKind {
	switch {
	case bytes.HasPrefix(data, xlsxMagic):
		return domain.ParserXLSX
	case bytes.HasPrefix(data, oleMagic):
		return domain.ParserLegacyOLE
	default:
		return domain.ParserDelimited
	}
}

// Parse decodes data into a ParsedWorkbook, applying header normalization,
// row filtering, and row capping uniformly across decoders.
func Parse(data []byte, opts Options) (*domain.ParsedWorkbook, error) {
	kind := Classify(data)

	var rawHeaders []string
	var rawRows [][]string
	var meta domain.ParseMeta
	var err error

	switch kind {
	case domain.ParserXLSX:
		rawHeaders, rawRows, meta, err = parseWorkbookBytes(data)
	case domain.ParserLegacyOLE:
		rawHeaders, rawRows, meta, err = parseWorkbookBytes(data)
		if err != nil {
			return nil, domerr.NewParseError("legacy workbook format is not decodable by the available reader", err)
		}
	default:
		rawHeaders, rawRows, meta, err = parseDelimited(data)
	}
	if err != nil {
		return nil, err
	}
	meta.Kind = kind

	if len(rawHeaders) == 0 {
		return nil, domerr.NewParseError("no header row found", nil)
	}

	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = normalizeHeader(h)
	}

	idCol := findColumn(headers, "사원번호")
	nameCol := findColumn(headers, "이름")
	remarkCol := findRemarkColumn(headers)
	columnTypes := inferColumnTypes(headers)
	meta.ColumnTypes = columnTypes

	meta.RawRowCount = len(rawRows)

	filtered := make([][]string, 0, len(rawRows))
	numbers := make([]int, 0, len(rawRows))
	for i, row := range rawRows {
		if isEmptyRow(row, idCol, nameCol) {
			meta.EmptyRowsSkipped++
			continue
		}
		if isDescriptionRow(row, idCol, remarkCol) {
			meta.DescRowsSkipped++
			continue
		}
		filtered = append(filtered, row)
		numbers = append(numbers, i+2) // +2: header row is 1
	}

	if len(filtered) == 0 {
		return nil, domerr.NewParseError("all rows are empty after filtering", nil)
	}

	cap := opts.rowCap()
	if len(filtered) > cap {
		meta.RowCapApplied = true
		meta.RowCap = cap
		filtered = filtered[:cap]
	}

	rows := make([]domain.Row, len(filtered))
	for i, raw := range filtered {
		cells := make([]string, len(headers))
		for j, h := range headers {
			v := ""
			if j < len(raw) {
				v = cleanIdentifier(strings.TrimSpace(raw[j]))
			}
			if v != "" && columnTypes[h] == domain.TypeDate {
				if normalized, ok := NormalizeDate(v); ok {
					v = normalized
				}
			}
			cells[j] = v
		}
		rows[i] = domain.Row{Number: numbers[i], Cells: cells}
	}

	return &domain.ParsedWorkbook{Headers: headers, Rows: rows, Meta: meta}, nil
}

// normalizeHeader collapses embedded whitespace/newlines to single spaces
// and strips bracketed annotations, per the Parser contract.
func normalizeHeader(h string) string {
	h = bracketAnn.ReplaceAllString(h, "")
	h = whitespace.ReplaceAllString(h, " ")
	return strings.TrimSpace(h)
}

// cleanIdentifier strips a trailing ".0" float artefact introduced when a
// spreadsheet tool coerces an identifier column to numeric.
func cleanIdentifier(v string) string {
	return strings.TrimSuffix(v, ".0")
}

func findColumn(headers []string, canonical string) int {
	reg := schema.Default()
	for i, h := range headers {
		if reg.Resolve(h) == canonical {
			return i
		}
	}
	return -1
}

func inferColumnTypes(headers []string) map[string]domain.DataType {
	reg := schema.Default()
	types := make(map[string]domain.DataType, len(headers))
	for _, h := range headers {
		canonical := reg.Resolve(h)
		if canonical == "" {
			continue
		}
		if fd, ok := reg.Find(canonical); ok {
			types[h] = fd.Type
		}
	}
	return types
}

func findRemarkColumn(headers []string) int {
	remarkNames := []string{"비고", "참고사항", "메모", "note", "remark", "comment"}
	for i, h := range headers {
		norm := schema.Normalize(h)
		for _, r := range remarkNames {
			if norm == schema.Normalize(r) {
				return i
			}
		}
	}
	return -1
}

func isEmptyRow(row []string, idCol, nameCol int) bool {
	if idCol >= 0 && idCol < len(row) && strings.TrimSpace(row[idCol]) != "" {
		return false
	}
	if nameCol >= 0 && nameCol < len(row) && strings.TrimSpace(row[nameCol]) != "" {
		return false
	}
	if idCol < 0 && nameCol < 0 {
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				return false
			}
		}
		return true
	}
	return true
}

func isDescriptionRow(row []string, idCol, remarkCol int) bool {
	if remarkCol < 0 || remarkCol >= len(row) {
		return false
	}
	text := row[remarkCol]
	hasKeyword := false
	for _, kw := range descriptionKeywords {
		if strings.Contains(text, kw) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}
	if idCol < 0 || idCol >= len(row) {
		return true
	}
	return !hasDigit(row[idCol])
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
