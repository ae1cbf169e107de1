package equity

import "github.com/dgnsrekt/tv_export/internal/tabular"

// Export column names.
const (
	ColumnDate      = "Date"
	ColumnEquity    = "Equity"
	ColumnBenchmark = "Benchmark"
)

// Label is the tooltip/legend view of one point.
type Label struct {
	Date      string `json:"date"`
	Equity    string `json:"equity"`
	Change    string `json:"change"`
	Benchmark string `json:"benchmark,omitempty"`
}

// Label formats p relative to the baseline of series.
func (f Formatter) Label(p Point, series []Point) Label {
	l := Label{
		Date:   f.Date(p.Date),
		Equity: f.Currency(p.Equity),
		Change: f.PercentChange(p.Equity, series),
	}
	if p.Benchmark != nil {
		l.Benchmark = f.Currency(*p.Benchmark)
	}
	return l
}

// Labels formats every point of series.
func (f Formatter) Labels(series []Point) []Label {
	out := make([]Label, len(series))
	for i, p := range series {
		out[i] = f.Label(p, series)
	}
	return out
}

// Records shapes series into export records with a fixed schema. Values stay
// raw (ISO date, plain number) so the CSV is machine-readable; display
// strings come from Formatter.Label. The
// Benchmark column exists only when showBenchmark is set; points without a
// benchmark value leave that field empty.
func Records(series []Point, showBenchmark bool) []tabular.Record {
	records := make([]tabular.Record, 0, len(series))
	for _, p := range series {
		rec := tabular.Record{
			tabular.F(ColumnDate, p.Date),
			tabular.F(ColumnEquity, p.Equity),
		}
		if showBenchmark {
			var bench any
			if p.Benchmark != nil {
				bench = *p.Benchmark
			}
			rec = append(rec, tabular.F(ColumnBenchmark, bench))
		}
		records = append(records, rec)
	}
	return records
}
