package layerai

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wikisoft/rosterval/internal/domain"
)

const sampleRowLimit = 5

// fieldStat is a lightweight field-wise summary over the mapped columns
// of a parsed workbook, injected into the AI prompt so the model has
// aggregate context instead of only per-row fragments.
type fieldStat struct {
	Field       string
	NonEmpty    int
	Empty       int
	DistinctMax int // capped distinct-value count, "many" beyond the cap
	Numeric     bool
	Min, Max    float64
}

type digest struct {
	TotalRows  int
	FieldStats []fieldStat
	SampleRows []map[string]string
}

func buildDigest(parsed *domain.ParsedWorkbook, idx map[string]int) digest {
	d := digest{TotalRows: len(parsed.Rows)}

	fields := make([]string, 0, len(idx))
	for f := range idx {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		d.FieldStats = append(d.FieldStats, summarizeField(parsed.Rows, idx[f], f))
	}

	limit := sampleRowLimit
	if limit > len(parsed.Rows) {
		limit = len(parsed.Rows)
	}
	for i := 0; i < limit; i++ {
		row := parsed.Rows[i]
		sample := make(map[string]string, len(fields))
		for _, f := range fields {
			sample[f] = row.Get(idx[f])
		}
		d.SampleRows = append(d.SampleRows, sample)
	}

	return d
}

func summarizeField(rows []domain.Row, col int, field string) fieldStat {
	stat := fieldStat{Field: field}
	distinct := make(map[string]bool)
	numericCount := 0
	first := true

	for _, row := range rows {
		v := strings.TrimSpace(row.Get(col))
		if v == "" {
			stat.Empty++
			continue
		}
		stat.NonEmpty++
		distinct[v] = true

		if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err == nil {
			numericCount++
			if first || f < stat.Min {
				stat.Min = f
			}
			if first || f > stat.Max {
				stat.Max = f
			}
			first = false
		}
	}

	stat.Numeric = stat.NonEmpty > 0 && numericCount == stat.NonEmpty
	if len(distinct) <= 20 {
		stat.DistinctMax = len(distinct)
	} else {
		stat.DistinctMax = -1 // sentinel: "many"
	}
	return stat
}

func (d digest) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "total_rows=%d\n", d.TotalRows)
	b.WriteString("field statistics:\n")
	for _, s := range d.FieldStats {
		distinct := strconv.Itoa(s.DistinctMax)
		if s.DistinctMax < 0 {
			distinct = "many"
		}
		if s.Numeric && s.NonEmpty > 0 {
			fmt.Fprintf(&b, "- %s: non_empty=%d empty=%d distinct=%s min=%.0f max=%.0f\n",
				s.Field, s.NonEmpty, s.Empty, distinct, s.Min, s.Max)
		} else {
			fmt.Fprintf(&b, "- %s: non_empty=%d empty=%d distinct=%s\n", s.Field, s.NonEmpty, s.Empty, distinct)
		}
	}
	b.WriteString("sample rows:\n")
	for i, sample := range d.SampleRows {
		fmt.Fprintf(&b, "%d: %v\n", i+1, sample)
	}
	return b.String()
}
