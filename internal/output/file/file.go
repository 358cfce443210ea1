package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/crimson-sun/advisor/internal/model"
)

const (
	defaultBufSize = 64 << 10
	defaultKeep    = 10
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize rotates the file once appending a report would take it past
// bytes. Zero, the default, never rotates.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithKeep sets how many rotated generations ({path}.1 newest .. {path}.N)
// survive a rotation.
func WithKeep(n int) Option {
	return func(o *Output) {
		if n > 0 {
			o.keep = n
		}
	}
}

// WithBufSize sets the write buffer size.
func WithBufSize(bytes int) Option {
	return func(o *Output) {
		if bytes > 0 {
			o.bufSize = bytes
		}
	}
}

// Output appends reports to a file as NDJSON. Non-ASCII text such as Arabic
// is written as is, not \u-escaped.
type Output struct {
	path    string
	maxSize int64
	keep    int
	bufSize int

	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	size int64
	line bytes.Buffer
	enc  *json.Encoder
}

// New opens path for appending, creating it if needed. Existing content
// counts towards the rotation size.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{path: path, keep: defaultKeep, bufSize: defaultBufSize}
	for _, opt := range opts {
		opt(o)
	}
	o.enc = json.NewEncoder(&o.line)
	o.enc.SetEscapeHTML(false)
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.line.Reset()
	if err := o.enc.Encode(report); err != nil {
		return fmt.Errorf("file output: encode: %w", err)
	}

	if o.maxSize > 0 && o.size > 0 && o.size+int64(o.line.Len()) > o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate %s: %w", o.path, err)
		}
	}

	n, err := o.w.Write(o.line.Bytes())
	o.size += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write %s: %w", o.path, err)
	}
	return nil
}

// Close flushes buffered reports and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	flushErr := o.w.Flush()
	closeErr := o.f.Close()
	if flushErr != nil {
		return fmt.Errorf("file output: flush %s: %w", o.path, flushErr)
	}
	return closeErr
}

func (o *Output) open() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: %w", err)
	}
	o.f, o.w, o.size = f, bufio.NewWriterSize(f, o.bufSize), info.Size()
	return nil
}

func (o *Output) generation(n int) string { return fmt.Sprintf("%s.%d", o.path, n) }

// rotate moves the current file to {path}.1, shifting older generations up
// by one and dropping the one past keep, then reopens path empty.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}
	if err := os.Remove(o.generation(o.keep)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for n := o.keep - 1; n >= 1; n-- {
		err := os.Rename(o.generation(n), o.generation(n+1))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.Rename(o.path, o.generation(1)); err != nil {
		return err
	}
	return o.open()
}
