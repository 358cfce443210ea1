package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/advisor/internal/model"
)

// Output writes JSON-encoded reports to stdout, one per line unless pretty.
type Output struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// New creates a stdout Output with optional pretty-printed JSON.
func New(pretty bool) *Output {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc}
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(report); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
