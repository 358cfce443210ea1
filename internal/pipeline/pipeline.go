// Package pipeline runs the advisor over a stream of problem records.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/model"
	"github.com/crimson-sun/advisor/internal/output"
)

const defaultMaxLine = 1 << 20 // 1MB

// Advisor turns one problem record into a report.
type Advisor interface {
	Advise(rec model.ProblemRecord) model.Report
}

// Stats counts what a Run did.
type Stats struct {
	Read    int // non-blank input lines
	Invalid int // lines that did not decode as a problem record
	Written int // reports delivered to the output
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithMaxLineSize caps the length of a single input line.
func WithMaxLineSize(n int) Option {
	return func(p *Pipeline) { p.maxLine = n }
}

// Pipeline connects an advisor and an output.
type Pipeline struct {
	advisor Advisor
	output  output.Output
	log     *zap.Logger
	maxLine int
}

// New creates a Pipeline from the given components.
func New(adv Advisor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		advisor: adv,
		output:  out,
		log:     zap.NewNop(),
		maxLine: defaultMaxLine,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reads newline-delimited JSON problem records from r and writes one
// report per record, in input order. A line that fails to decode still gets
// a report, flagged invalid_input, so output lines match input lines. Run
// stops at end of input, on the first output error, or when ctx is done.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), p.maxLine)

	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		stats.Read++

		var rec model.ProblemRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			stats.Invalid++
			p.log.Warn("skipping undecodable record", zap.Int("line", line), zap.Error(err))
			rec = model.ProblemRecord{}
		}

		report := p.advisor.Advise(rec)
		if err := p.output.Write(ctx, report); err != nil {
			return stats, fmt.Errorf("pipeline output: %w", err)
		}
		stats.Written++
		p.log.Debug("report written",
			zap.Int("line", line),
			zap.String("request_id", report.Analysis.RequestID))
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("pipeline input: line %d: %w", line+1, err)
	}
	return stats, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
