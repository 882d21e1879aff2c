package parser

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"

	"github.com/wikisoft/rosterval/internal/domain"
)

// parseDelimited handles CSV/TSV-style text exports. Korean HR tools
// commonly emit EUC-KR; detect and transcode before CSV decoding since
// a raw byte comparison on non-UTF-8 input produces garbled headers
// rather than a clean parse failure.
func parseDelimited(data []byte) (headers []string, rows [][]string, meta domain.ParseMeta, err error) {
	text, enc := decodeText(data)
	meta.Encoding = enc

	delim := detectDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, rerr := reader.ReadAll()
	if rerr != nil {
		return nil, nil, meta, rerr
	}
	if len(records) == 0 {
		return nil, nil, meta, nil
	}

	headers = records[0]
	rows = records[1:]
	return headers, rows, meta, nil
}

func decodeText(data []byte) (string, string) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), "utf-8-bom"
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		out, _ := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
		return string(out), "utf-16le"
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		out, _ := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
		return string(out), "utf-16be"
	case utf8.Valid(data):
		return string(data), "utf-8"
	default:
		out, decErr := korean.EUCKR.NewDecoder().Bytes(data)
		if decErr != nil {
			return string(data), "unknown"
		}
		return string(out), "euc-kr"
	}
}

func detectDelimiter(text string) rune {
	firstLine := text
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		firstLine = text[:idx]
	}
	if strings.Count(firstLine, "\t") > strings.Count(firstLine, ",") {
		return '\t'
	}
	return ','
}
