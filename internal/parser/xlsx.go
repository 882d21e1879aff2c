package parser

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/wikisoft/rosterval/internal/domain"
)

// parseWorkbookBytes decodes an OOXML (.xlsx) workbook, or a legacy
// workbook saved inside a CFB/OLE container that excelize can still
// open (e.g. password-protected OOXML). True BIFF8 binary .xls bytes
// are not decodable by any library available in this module's
// dependency set and surface as a decode error to the caller.
func parseWorkbookBytes(data []byte) (headers []string, rows [][]string, meta domain.ParseMeta, err error) {
	f, ferr := excelize.OpenReader(bytes.NewReader(data))
	if ferr != nil {
		return nil, nil, meta, ferr
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, meta, errNoSheets
	}

	sheetName := selectSheet(sheets)
	meta.SheetName = sheetName

	grid, gerr := f.GetRows(sheetName)
	if gerr != nil {
		return nil, nil, meta, gerr
	}
	if len(grid) == 0 {
		return nil, nil, meta, nil
	}

	headers = grid[0]
	rows = grid[1:]
	return headers, rows, meta, nil
}

var errNoSheets = &noSheetsError{}

type noSheetsError struct{}

func (e *noSheetsError) Error() string { return "workbook contains no sheets" }

// selectSheet implements the legacy-workbook sheet-selection ordering:
// prefer a sheet whose name contains both "(2-2)" and "재직자", then one
// containing both "재직자명부" and "시스템", then the first containing
// both "재직자" and "명부", else the first sheet in the workbook.
func selectSheet(sheets []string) string {
	if hit := firstContainingAll(sheets, "(2-2)", "재직자"); hit != "" {
		return hit
	}
	if hit := firstContainingAll(sheets, "재직자명부", "시스템"); hit != "" {
		return hit
	}
	if hit := firstContainingAll(sheets, "재직자", "명부"); hit != "" {
		return hit
	}
	return sheets[0]
}

func firstContainingAll(sheets []string, needles ...string) string {
	for _, s := range sheets {
		all := true
		for _, n := range needles {
			if !strings.Contains(s, n) {
				all = false
				break
			}
		}
		if all {
			return s
		}
	}
	return ""
}
