package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/advisor/internal/model"
	"github.com/crimson-sun/advisor/internal/output"
)

// Multi writes each report to several outputs in order. A failing output
// does not stop delivery to the ones after it; the errors are joined.
type Multi struct {
	outputs []output.Output
}

func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

func (m *Multi) Write(ctx context.Context, report model.Report) error {
	return m.each(func(o output.Output) error { return o.Write(ctx, report) })
}

// Close closes every output, even after a failure.
func (m *Multi) Close() error {
	return m.each(output.Output.Close)
}

func (m *Multi) each(f func(output.Output) error) error {
	var errs []error
	for i, o := range m.outputs {
		if err := f(o); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
