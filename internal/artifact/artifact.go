package artifact

import (
	"context"
	"strings"
	"time"
)

// Kind is the MIME type an artifact is delivered with.
type Kind string

const (
	KindCSV Kind = "text/csv;charset=utf-8;"
	KindPNG Kind = "image/png"
)

// Extension returns the file extension used when persisting an artifact of this kind.
func (k Kind) Extension() string {
	switch {
	case strings.HasPrefix(string(k), "text/csv"):
		return "csv"
	case k == KindPNG:
		return "png"
	default:
		return "bin"
	}
}

// ContentType returns the kind as an HTTP Content-Type value.
func (k Kind) ContentType() string {
	return strings.TrimSuffix(string(k), ";")
}

// Artifact is an ephemeral export payload on its way to the host file-save mechanism.
type Artifact struct {
	Data     []byte
	Filename string
	Kind     Kind
}

// Sink accepts finished artifacts. Implementations must not retain Data after Save returns.
type Sink interface {
	Save(ctx context.Context, a Artifact) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, a Artifact) error

func (f SinkFunc) Save(ctx context.Context, a Artifact) error { return f(ctx, a) }

// Filename builds "<logicalName>-<YYYY-MM-DD>.<ext>" using the UTC date of now.
func Filename(logicalName, ext string, now time.Time) string {
	return logicalName + "-" + now.UTC().Format("2006-01-02") + "." + strings.TrimPrefix(ext, ".")
}
