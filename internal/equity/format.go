// Package equity derives display strings from an equity time series and
// shapes the series into export records.
package equity

import (
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultBaseline is the percent-change reference when the series is empty.
const DefaultBaseline = 100000

// DefaultCurrency is used by the package-level helpers.
const DefaultCurrency = money.USD

const dateLabelLayout = "Jan 2, 2006"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Point is one sample of the strategy's mark-to-market equity. Benchmark is
// only present when benchmark comparison data exists for that date.
type Point struct {
	Date      string   `json:"date"`
	Equity    float64  `json:"equity"`
	Benchmark *float64 `json:"benchmark,omitempty"`
}

// Formatter renders values using one currency's symbol and grouping rules.
type Formatter struct {
	cur *money.Currency
}

// NewFormatter returns a Formatter for an ISO 4217 code. Unknown codes fall back to USD.
func NewFormatter(code string) Formatter {
	cur := money.GetCurrency(strings.ToUpper(strings.TrimSpace(code)))
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	return Formatter{cur: cur}
}

var defaultFormatter = NewFormatter(DefaultCurrency)

// Code returns the formatter's currency code.
func (f Formatter) Code() string {
	return f.currency().Code
}

func (f Formatter) currency() *money.Currency {
	if f.cur == nil {
		return defaultFormatter.cur
	}
	return f.cur
}

// Currency formats value with no fraction digits, rounding half away from zero.
func (f Formatter) Currency(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "n/a"
	}
	cur := f.currency()
	rounded := math.Round(value)
	if math.Abs(rounded) >= math.MaxInt64 {
		return formatWide(cur, decimal.NewFromFloat(value).Round(0))
	}
	whole := money.NewFormatter(0, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	return whole.Format(int64(rounded))
}

// formatWide renders amounts beyond int64 the way money.Formatter lays out
// the template, grapheme and thousands separator.
func formatWide(cur *money.Currency, amount decimal.Decimal) string {
	digits := amount.Abs().String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(cur.Thousand)
		}
		b.WriteRune(r)
	}
	out := strings.Replace(cur.Template, "1", b.String(), 1)
	out = strings.Replace(out, "$", cur.Grapheme, 1)
	if amount.IsNegative() {
		out = "-" + out
	}
	return out
}

// PercentChange formats (value - baseline) / baseline as a signed percentage
// with two decimals. The baseline is the first point's equity, or
// DefaultBaseline for an empty series.
func (f Formatter) PercentChange(value float64, series []Point) string {
	baseline := float64(DefaultBaseline)
	if len(series) > 0 {
		baseline = series[0].Equity
	}
	if baseline == 0 || math.IsNaN(baseline) || math.IsInf(baseline, 0) || math.IsNaN(value) || math.IsInf(value, 0) {
		return "n/a"
	}

	base := decimal.NewFromFloat(baseline)
	pct := decimal.NewFromFloat(value).Sub(base).Div(base).Mul(decimal.NewFromInt(100))
	if pct.IsNegative() {
		return "-" + pct.Abs().StringFixed(2) + "%"
	}
	return "+" + pct.StringFixed(2) + "%"
}

// Date renders an ISO calendar date as "Jan 2, 2006". Timestamps keep the
// calendar day of their own offset. Input that does not parse is returned unchanged.
func (f Formatter) Date(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLabelLayout)
		}
	}
	return raw
}

// FormatCurrency formats value in DefaultCurrency.
func FormatCurrency(value float64) string { return defaultFormatter.Currency(value) }

// FormatPercentChange formats value's change from the series baseline.
func FormatPercentChange(value float64, series []Point) string {
	return defaultFormatter.PercentChange(value, series)
}

// FormatDate renders an ISO date label, or returns raw verbatim on parse failure.
func FormatDate(raw string) string { return defaultFormatter.Date(raw) }
