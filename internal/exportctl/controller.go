// Package exportctl orchestrates user-triggered chart exports. Failures are
// logged and reported through Outcome values; they never reach the caller as
// errors or panics.
package exportctl

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dgnsrekt/tv_export/internal/artifact"
	"github.com/dgnsrekt/tv_export/internal/equity"
	"github.com/dgnsrekt/tv_export/internal/tabular"
)

// ImageExporter captures an element into a saved PNG. raster.Exporter implements it.
type ImageExporter interface {
	Export(ctx context.Context, elementID, filename string) (saved bool, err error)
}

// Notifier delivers a short human-readable message about a finished export.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Journal records finished exports.
type Journal interface {
	Write(record any) error
}

// ImageRequest asks for a PNG of a mounted chart container.
type ImageRequest struct {
	Slug      string
	ElementID string
}

// DataRequest asks for a CSV of an equity series.
type DataRequest struct {
	Slug          string
	Series        []equity.Point
	ShowBenchmark bool
}

// Controller composes the tabular and raster exporters with a clock.
type Controller struct {
	images   ImageExporter
	sink     artifact.Sink
	now      func() time.Time
	notifier Notifier
	journal  Journal
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock overrides the wall clock used for filename date stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithNotifier sends a message for every finished export.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithJournal appends every Outcome to j.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// New builds a Controller. images may be nil when no capture backend is available;
// image exports then finish with a failed Outcome.
func New(images ImageExporter, sink artifact.Sink, opts ...Option) *Controller {
	c := &Controller{images: images, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExportImage starts a capture of req.ElementID in the background and returns
// immediately. The returned channel yields exactly one Outcome and is then
// closed; callers that do not care may ignore it.
func (c *Controller) ExportImage(ctx context.Context, req ImageRequest) <-chan Outcome {
	done := make(chan Outcome, 1)
	started := c.now()
	out := Outcome{
		Kind:      KindImage,
		Filename:  artifact.Filename(Slug(req.Slug), "png", started),
		StartedAt: started,
	}

	go func() {
		defer close(done)
		ctx := artifact.WithSource(context.WithoutCancel(ctx), "export-image:"+req.ElementID)
		out = c.runImage(ctx, req, out)
		c.finish(ctx, out)
		done <- out
	}()
	return done
}

func (c *Controller) runImage(ctx context.Context, req ImageRequest, out Outcome) (result Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("exportctl: image export panicked: %v", r)
			out.FinishedAt = c.now()
			result = out
		}
	}()

	switch {
	case c.images == nil:
		out.Err = ErrNoCaptureBackend
	case strings.TrimSpace(req.ElementID) == "":
		out.Err = fmt.Errorf("exportctl: element id is required")
	default:
		out.Saved, out.Err = c.images.Export(ctx, req.ElementID, out.Filename)
	}
	out.FinishedAt = c.now()
	return out
}

// ExportData serializes req.Series and hands the CSV to the sink. It runs
// synchronously and never returns an error; the Outcome describes what happened.
func (c *Controller) ExportData(ctx context.Context, req DataRequest) (out Outcome) {
	out = Outcome{Kind: KindData, StartedAt: c.now()}
	out.Filename = artifact.Filename(Slug(req.Slug), "csv", out.StartedAt)
	ctx = artifact.WithSource(ctx, "export-data")

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("exportctl: data export panicked: %v", r)
			out.Saved = false
		}
		out.FinishedAt = c.now()
		c.finish(ctx, out)
	}()

	text, err := tabular.Serialize(equity.Records(req.Series, req.ShowBenchmark))
	if err != nil {
		out.Err = err
		return out
	}
	if err := tabular.ExportToFile(ctx, c.sink, text, out.Filename); err != nil {
		out.Err = err
		return out
	}
	out.Saved = true
	return out
}

func (c *Controller) finish(ctx context.Context, out Outcome) {
	attrs := []any{
		"kind", out.Kind,
		"filename", out.Filename,
		"saved", out.Saved,
		"duration_ms", out.FinishedAt.Sub(out.StartedAt).Milliseconds(),
	}
	switch {
	case out.Err != nil:
		slog.Error("chart export failed", append(attrs, "error", out.Err)...)
	case !out.Saved:
		slog.Warn("chart export produced no artifact", attrs...)
	default:
		slog.Info("chart export complete", attrs...)
	}

	if c.journal != nil {
		if err := c.journal.Write(out.Entry()); err != nil {
			slog.Debug("export journal write failed", "filename", out.Filename, "error", err)
		}
	}
	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, out.Message()); err != nil {
			slog.Debug("export notification failed", "filename", out.Filename, "error", err)
		}
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases name and collapses every run of other characters into "-".
func Slug(name string) string {
	s := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "chart"
	}
	return s
}
