// Package doctor runs read-only environment checks for the journal-ai CLI.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/journal-ai/internal/config"
	"github.com/kalambet/journal-ai/internal/journal"
	"github.com/kalambet/journal-ai/internal/ollama"
	"github.com/kalambet/journal-ai/internal/provider"
)

// Check is the result of one probe.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Options control a doctor run.
type Options struct {
	// Pull downloads the local model when it is missing.
	Pull bool
	// Progress receives pull progress. Nil discards it.
	Progress io.Writer
}

const (
	slotConfig = iota
	slotLocalServer
	slotLocalModel
	slotCloudKey
	slotJournal
	slotCount
)

// Run probes the configuration, the local model server, the cloud
// credential and the journal command concurrently. Results come back in a
// fixed order. Only a cancelled ctx makes Run return an error.
func Run(ctx context.Context, cfg config.Config, opts Options) ([]Check, error) {
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	order, _ := cfg.ProviderOrder()

	checks := make([]Check, slotCount)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		checks[slotConfig] = checkConfig(cfg.Path)
		return nil
	})
	g.Go(func() error {
		checks[slotLocalServer], checks[slotLocalModel] = checkLocal(gctx, cfg.Providers.Local, opts)
		return nil
	})
	g.Go(func() error {
		checks[slotCloudKey] = checkCloudKey(cfg, slices.Contains(order, provider.Cloud))
		return nil
	})
	g.Go(func() error {
		checks[slotJournal] = checkJournal(cfg.Journal.Command)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return checks, nil
}

// Healthy reports whether every check passed.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func checkConfig(path string) Check {
	c := Check{Name: "config", OK: true, Detail: path}
	if path == "" {
		c.Detail = "(defaults)"
		return c
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			c.Detail = path + " (not found, using defaults)"
			return c
		}
		c.OK = false
		c.Detail = fmt.Sprintf("%s: %v", path, err)
	}
	return c
}

func checkLocal(ctx context.Context, cfg config.LocalConfig, opts Options) (server, model Check) {
	server = Check{Name: "local server"}
	model = Check{Name: "local model"}

	client := ollama.New(cfg.BaseURL)
	if !client.IsRunning(ctx) {
		server.Detail = fmt.Sprintf("not running at %s", client.BaseURL())
		model.Detail = fmt.Sprintf("%s (not checked)", cfg.Model)
		return server, model
	}
	server.OK = true
	server.Detail = fmt.Sprintf("running at %s", client.BaseURL())

	if err := ollama.EnsureModel(ctx, client, cfg.Model, opts.Pull, opts.Progress); err != nil {
		model.Detail = err.Error()
		return server, model
	}
	model.OK = true
	model.Detail = cfg.Model
	return server, model
}

func checkCloudKey(cfg config.Config, inOrder bool) Check {
	c := Check{Name: "cloud key"}
	switch {
	case cfg.HasAPIKey():
		c.OK = true
		c.Detail = "set"
	case inOrder:
		c.Detail = "not set (export OPENAI_API_KEY or run: journal-ai config set providers.cloud.api_key <key>)"
	default:
		c.OK = true
		c.Detail = "not set (cloud provider not in providers.order)"
	}
	return c
}

func checkJournal(command string) Check {
	c := Check{Name: "journal command"}
	path, err := journal.NewFileJournal(command, false).Check()
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	c.OK = true
	c.Detail = path
	return c
}
