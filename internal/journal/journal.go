// Package journal appends export outcomes as JSON lines to date-organized,
// size-rotated files.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("journal: writer is closed")
	// ErrBufferFull is returned when the write queue is saturated. The record is dropped.
	ErrBufferFull = errors.New("journal: buffer full")
)

const (
	defaultBuffer    = 256
	defaultMaxSizeMB = 10
	drainTimeout     = 5 * time.Second
)

// Writer queues records and writes them from a single goroutine.
// Files land in <baseDir>/<YYYY-MM-DD>/<name>.jsonl (UTC dates).
type Writer struct {
	baseDir   string
	name      string
	maxSizeMB int
	now       func() time.Time

	writeCh   chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// closeMu orders Write against Close: a record accepted under the read
	// lock is in writeCh before Close starts draining.
	closeMu sync.RWMutex
	closed  bool

	mu          sync.Mutex
	currentDate string
	file        *lumberjack.Logger
}

// Option customises a Writer.
type Option func(*Writer)

// WithMaxSizeMB sets the rotation size of each journal file.
func WithMaxSizeMB(mb int) Option {
	return func(w *Writer) {
		if mb > 0 {
			w.maxSizeMB = mb
		}
	}
}

// WithClock overrides the clock used to pick the date directory.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// New starts a writer. name is the file base name, "exports" when empty.
func New(baseDir, name string, bufferSize int, opts ...Option) *Writer {
	if name == "" {
		name = "exports"
	}
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	w := &Writer{
		baseDir:   baseDir,
		name:      name,
		maxSizeMB: defaultMaxSizeMB,
		now:       time.Now,
		writeCh:   make(chan any, bufferSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w
}

// Write queues record without blocking. A nil return means the record will
// be written, even if Close runs concurrently.
func (w *Writer) Write(record any) error {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.writeCh <- record:
		return nil
	default:
		slog.Warn("journal buffer full, dropping record", "name", w.name)
		return ErrBufferFull
	}
}

// Close stops the writer after flushing what is already queued.
func (w *Writer) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.closeMu.Lock()
		w.closed = true
		w.closeMu.Unlock()

		close(w.done)
		w.wg.Wait()

		timeout := time.After(drainTimeout)
	drain:
		for {
			select {
			case record := <-w.writeCh:
				w.writeRecord(record)
			case <-timeout:
				slog.Warn("journal close timeout, some records may be lost", "name", w.name)
				break drain
			default:
				break drain
			}
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.file != nil {
			err = w.file.Close()
			w.file = nil
		}
	})
	return err
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-w.done:
			return
		}
	}
}

func (w *Writer) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("journal marshal failed", "name", w.name, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().UTC().Format("2006-01-02")
	if w.file == nil || date != w.currentDate {
		if err := w.openForDate(date); err != nil {
			slog.Error("journal open failed", "name", w.name, "error", err)
			return
		}
	}
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "name", w.name, "error", err)
	}
}

func (w *Writer) openForDate(date string) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, w.name+".jsonl")
	w.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 30,
		MaxAge:     30,
	}
	w.currentDate = date
	slog.Debug("journal file opened", "file", path)
	return nil
}

// Path returns the file the writer would use for t.
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.baseDir, t.UTC().Format("2006-01-02"), w.name+".jsonl")
}
