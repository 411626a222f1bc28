package ollama

import (
	"context"
	"fmt"
	"io"
)

// EnsureModel checks that Ollama is running and the given model is available.
// When pull is true a missing model is downloaded with progress written to w;
// otherwise a missing model is reported as an error.
func EnsureModel(ctx context.Context, c *Client, model string, pull bool, w io.Writer) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running at %s. Start it with: ollama serve", c.baseURL)
	}

	if c.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
		return nil
	}
	if !pull {
		return fmt.Errorf("model %s is not available locally. Pull it with: ollama pull %s", model, model)
	}

	fmt.Fprintf(w, "model %s: pulling...\n", model)
	err := c.PullModel(ctx, model, func(p PullProgress) {
		if p.Total > 0 {
			pct := float64(p.Completed) / float64(p.Total) * 100
			fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
		} else {
			fmt.Fprintf(w, "  %s\n", p.Status)
		}
	})
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}
