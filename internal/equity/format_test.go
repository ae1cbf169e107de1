package equity

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/tv_export/internal/tabular"
)

func f64(v float64) *float64 { return &v }

func TestFormatPercentChange(t *testing.T) {
	series := []Point{{Date: "2024-01-01", Equity: 100000}, {Date: "2024-01-02", Equity: 105000}}

	tests := []struct {
		name   string
		value  float64
		series []Point
		want   string
	}{
		{"flat", 100000, series, "+0.00%"},
		{"gain", 110000, []Point{{Equity: 100000}}, "+10.00%"},
		{"loss", 95000, series, "-5.00%"},
		{"rounding", 100012.345, series, "+0.01%"},
		{"empty series uses default baseline", 150000, nil, "+50.00%"},
		{"tiny loss keeps sign", 99999.999, series, "-0.00%"},
		{"zero baseline", 10, []Point{{Equity: 0}}, "n/a"},
		{"nan value", math.NaN(), series, "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPercentChange(tt.value, tt.series))
		})
	}
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$100,000", FormatCurrency(100000))
	assert.Equal(t, "$1,235", FormatCurrency(1234.5))
	assert.Equal(t, "-$1,235", FormatCurrency(-1234.5))
	assert.Equal(t, "$0", FormatCurrency(0.4))
	assert.Equal(t, "n/a", FormatCurrency(math.Inf(1)))
}

func TestFormatCurrency_BeyondInt64KeepsSign(t *testing.T) {
	assert.Equal(t, "$10,000,000,000,000,000,000", FormatCurrency(1e19))
	assert.Equal(t, "-$10,000,000,000,000,000,000", FormatCurrency(-1e19))

	huge := FormatCurrency(1e300)
	assert.True(t, strings.HasPrefix(huge, "$1,000,"), huge)
	assert.NotContains(t, huge, "-")

	assert.Equal(t, "-$9,223,372,036,854,775,808", FormatCurrency(math.MinInt64))
}

func TestNewFormatter_UnknownCurrencyFallsBackToUSD(t *testing.T) {
	f := NewFormatter("???")
	assert.Equal(t, "USD", f.Code())
	assert.Equal(t, "$12", f.Currency(12))

	var zero Formatter
	assert.Equal(t, "$12", zero.Currency(12))
}

func TestNewFormatter_OtherCurrency(t *testing.T) {
	f := NewFormatter("eur")
	assert.Equal(t, "EUR", f.Code())
	out := f.Currency(2500)
	assert.Contains(t, out, "€")
	assert.Contains(t, out, "2")
	assert.NotContains(t, out, ".00")
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Jan 1, 2024", FormatDate("2024-01-01"))
	assert.Equal(t, "Mar 15, 2024", FormatDate("2024-03-15T10:30:00Z"))
	assert.Equal(t, "Jan 1, 2024", FormatDate("2024-01-01T22:00:00-05:00"))
	assert.Equal(t, "Jan 2, 2024", FormatDate("2024-01-02T01:00:00+09:00"))
	assert.Equal(t, "not-a-date", FormatDate("not-a-date"))
	assert.Equal(t, "", FormatDate(""))
	assert.Equal(t, "2024-13-45", FormatDate("2024-13-45"))
}

func TestLabels(t *testing.T) {
	series := []Point{
		{Date: "2024-01-01", Equity: 100000, Benchmark: f64(100000)},
		{Date: "2024-01-02", Equity: 102500},
	}

	labels := NewFormatter("USD").Labels(series)
	require.Len(t, labels, 2)
	assert.Equal(t, Label{Date: "Jan 1, 2024", Equity: "$100,000", Change: "+0.00%", Benchmark: "$100,000"}, labels[0])
	assert.Equal(t, Label{Date: "Jan 2, 2024", Equity: "$102,500", Change: "+2.50%"}, labels[1])
}

func TestRecords_BenchmarkFlagOff(t *testing.T) {
	series := []Point{{Date: "2024-01-01", Equity: 100000, Benchmark: f64(99000)}}

	out, err := tabular.Serialize(Records(series, false))
	require.NoError(t, err)
	assert.Equal(t, "Date,Equity\n2024-01-01,100000", out)
}

func TestRecords_BenchmarkFlagOn(t *testing.T) {
	series := []Point{
		{Date: "2024-01-01", Equity: 100000, Benchmark: f64(100000)},
		{Date: "2024-01-02", Equity: 101000},
		{Date: "2024-01-03", Equity: 102000, Benchmark: f64(100500.25)},
	}

	out, err := tabular.Serialize(Records(series, true))
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Date,Equity,Benchmark",
		"2024-01-01,100000,100000",
		"2024-01-02,101000,",
		"2024-01-03,102000,100500.25",
	}, "\n"), out)
}

func TestRecords_HeaderStableWhenFirstPointLacksBenchmark(t *testing.T) {
	series := []Point{
		{Date: "2024-01-01", Equity: 100000},
		{Date: "2024-01-02", Equity: 101000, Benchmark: f64(100100)},
	}

	out, err := tabular.Serialize(Records(series, true))
	require.NoError(t, err)
	assert.Equal(t, "Date,Equity,Benchmark\n2024-01-01,100000,\n2024-01-02,101000,100100", out)
}
