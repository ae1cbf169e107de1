package tabular

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgnsrekt/tv_export/internal/artifact"
)

// ErrEmptyInput matches any *EmptyInputError via errors.Is.
var ErrEmptyInput = errors.New("no records to export")

// EmptyInputError is returned by Serialize for a zero-length record sequence.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string        { return ErrEmptyInput.Error() }
func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// Serialize renders records as CSV text. The first record fixes the header and
// column order; keys missing from later records become empty fields.
func Serialize(records []Record) (string, error) {
	if len(records) == 0 {
		return "", &EmptyInputError{}
	}

	header := records[0].Keys()
	rows := make([]string, 0, len(records)+1)
	rows = append(rows, strings.Join(header, ","))

	fields := make([]string, len(header))
	for _, rec := range records {
		for i, key := range header {
			v, _ := rec.Get(key)
			fields[i] = encodeValue(v)
		}
		rows = append(rows, strings.Join(fields, ","))
	}
	return strings.Join(rows, "\n"), nil
}

// encodeValue quotes a string only when it contains a comma or a double quote.
// Newlines do not trigger quoting.
func encodeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		if strings.ContainsAny(x, `,"`) {
			return `"` + strings.ReplaceAll(x, `"`, `""`) + `"`
		}
		return x
	case *string:
		if x == nil {
			return ""
		}
		return encodeValue(*x)
	case *float64:
		if x == nil {
			return ""
		}
		return encodeValue(*x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return encodeValue(fmt.Sprint(x))
	}
}

// NewArtifact wraps serialized text as a CSV artifact.
func NewArtifact(text, filename string) artifact.Artifact {
	return artifact.Artifact{Data: []byte(text), Filename: filename, Kind: artifact.KindCSV}
}

// ExportToFile hands the CSV text to sink in a single attempt.
func ExportToFile(ctx context.Context, sink artifact.Sink, text, filename string) error {
	if err := sink.Save(ctx, NewArtifact(text, filename)); err != nil {
		return fmt.Errorf("tabular: save %s: %w", filename, err)
	}
	return nil
}
