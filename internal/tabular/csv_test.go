package tabular

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/tv_export/internal/artifact"
)

func TestSerialize_EmptyInput(t *testing.T) {
	_, err := Serialize(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyInput))

	var empty *EmptyInputError
	assert.True(t, errors.As(err, &empty))
}

func TestSerialize_RowCountIsInputPlusHeader(t *testing.T) {
	for n := 1; n <= 5; n++ {
		records := make([]Record, n)
		for i := range records {
			records[i] = Record{F("i", i), F("name", "row")}
		}
		out, err := Serialize(records)
		require.NoError(t, err)
		assert.Len(t, strings.Split(out, "\n"), n+1, "n=%d", n)
	}
}

func TestSerialize_QuotesCommaAndQuote(t *testing.T) {
	out, err := Serialize([]Record{{F("x", "a,b")}})
	require.NoError(t, err)
	assert.Equal(t, "x\n\"a,b\"", out)

	out, err = Serialize([]Record{{F("x", `say "hi"`)}})
	require.NoError(t, err)
	assert.Equal(t, "x\n\"say \"\"hi\"\"\"", out)
}

func TestSerialize_NewlineDoesNotTriggerQuoting(t *testing.T) {
	out, err := Serialize([]Record{{F("note", "line1\nline2")}})
	require.NoError(t, err)
	assert.Equal(t, "note\nline1\nline2", out)
}

func TestSerialize_HeaderFromFirstRecordAndMissingFields(t *testing.T) {
	records := []Record{
		{F("Date", "2024-01-01"), F("Equity", 100000.0), F("Benchmark", 99000.5)},
		{F("Equity", 101000.0), F("Date", "2024-01-02")},
		{F("Date", "2024-01-03"), F("Equity", 102000.0), F("Benchmark", nil), F("Extra", "ignored")},
	}

	out, err := Serialize(records)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Date,Equity,Benchmark",
		"2024-01-01,100000,99000.5",
		"2024-01-02,101000,",
		"2024-01-03,102000,",
	}, "\n"), out)
}

func TestEncodeValue(t *testing.T) {
	s := "a,b"
	f := 1.25
	var nilFloat *float64

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"plain string", "abc", "abc"},
		{"string pointer", &s, `"a,b"`},
		{"float", 100000.0, "100000"},
		{"fraction", 0.1, "0.1"},
		{"negative", -12.5, "-12.5"},
		{"float pointer", &f, "1.25"},
		{"nil float pointer", nilFloat, ""},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"bool", true, "true"},
		{"stringer fallback", struct{ A string }{"x,y"}, `"{x,y}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeValue(tt.in))
		})
	}
}

func TestExportToFile(t *testing.T) {
	var saved artifact.Artifact
	sink := artifact.SinkFunc(func(_ context.Context, a artifact.Artifact) error {
		saved = a
		return nil
	})

	require.NoError(t, ExportToFile(context.Background(), sink, "x\n1", "equity-2024-01-01.csv"))
	assert.Equal(t, artifact.KindCSV, saved.Kind)
	assert.Equal(t, "equity-2024-01-01.csv", saved.Filename)
	assert.Equal(t, "x\n1", string(saved.Data))
}

func TestExportToFile_PropagatesSinkFailure(t *testing.T) {
	boom := errors.New("disk full")
	sink := artifact.SinkFunc(func(context.Context, artifact.Artifact) error { return boom })

	err := ExportToFile(context.Background(), sink, "x\n1", "a.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
