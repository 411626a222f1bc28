package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kalambet/journal-ai/internal/config"
	"github.com/kalambet/journal-ai/internal/entry"
	"github.com/kalambet/journal-ai/internal/input"
	"github.com/kalambet/journal-ai/internal/journal"
	"github.com/kalambet/journal-ai/internal/ollama"
	"github.com/kalambet/journal-ai/internal/provider"
	"github.com/kalambet/journal-ai/internal/structurer"
)

type rootOptions struct {
	provider   string
	model      string
	configPath string
	file       string
	preview    bool
	dryRun     bool
	noColor    bool
	verbose    bool
}

// handoff stores entries and can describe what storing one would do.
type handoff interface {
	journal.Persister
	Describe(e entry.Entry) string
}

var newHandoff = func(cfg config.Config) handoff {
	return journal.NewFileJournal(cfg.Journal.Command, cfg.Journal.AppendTags)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "journal-ai [text...]",
		Short: "Turn a raw note into a structured journal entry",
		Long: `Turn a raw note into a structured journal entry and store it with file-journal.

The note is sent to the configured providers in order (local Ollama first,
then the cloud API by default) until one returns a usable entry.

Examples:
  journal-ai "had a great call with the team, shipped the importer"
  journal-ai -f notes.md --preview
  journal-ai -f scan.pdf -p cloud --dry-run
  pbpaste | journal-ai`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			noColor = opts.noColor || !colorEnabled(errOut)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStructure(cmd, opts, args)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := cmd.Flags()
	f.StringVarP(&opts.provider, "provider", "p", "", "use only this provider (local or cloud), no fallback")
	f.StringVarP(&opts.model, "model", "m", "", "override the model of the provider given with --provider")
	f.StringVarP(&opts.file, "file", "f", "", "read the note from a text, markdown or PDF file")
	f.BoolVar(&opts.preview, "preview", false, "print the structured entry before storing it")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the entry and the journal command without storing")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/journal-ai/config.json)")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func runStructure(cmd *cobra.Command, opts *rootOptions, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return usageError{fmt.Errorf("loading config: %w", err)}
	}
	setupLogging(cfg, opts.verbose)

	hint, err := applyProviderFlags(&cfg, opts)
	if err != nil {
		return usageError{err}
	}

	src := input.Source{Args: args, File: opts.file, Stdin: cmd.InOrStdin()}
	if f, ok := src.Stdin.(*os.File); ok && f == os.Stdin {
		src.StdinTerminal = input.StdinIsTerminal()
	}
	text, err := input.Read(src)
	if err != nil {
		if errors.Is(err, input.ErrNoInput) {
			printWarning("nothing to structure: pass text, --file, or pipe a note on stdin")
			return err
		}
		if errors.Is(err, input.ErrTooLarge) {
			return err
		}
		return usageError{fmt.Errorf("reading input: %w", err)}
	}

	providers, err := buildProviders(cfg, hint)
	if err != nil {
		return usageError{err}
	}
	orch := structurer.New(providers,
		structurer.WithReparseRetry(cfg.Structuring.ReparseRetry),
		structurer.WithEntryOptions(entry.Options{
			MaxTags:        cfg.Structuring.MaxTags,
			MaxTitleLength: cfg.Structuring.MaxTitleLength,
		}),
	)

	if hint.IsZero() {
		printStep("Structuring with %s", joinIDs(orch.Providers()))
	} else {
		printStep("Structuring with %s only", hint)
	}

	outcome, err := orch.Run(ctx, text, hint)
	if err != nil {
		var exhausted *structurer.ExhaustedError
		if errors.As(err, &exhausted) {
			printAttempts(exhausted.Attempts)
		}
		return err
	}
	e := *outcome.Entry

	h := newHandoff(cfg)
	if opts.preview || opts.dryRun {
		printEntry(out, e)
	}
	if opts.dryRun {
		fmt.Fprintln(out, h.Describe(e))
		return nil
	}

	res, err := h.Persist(ctx, e)
	if err != nil {
		var pe *journal.PersistError
		if errors.As(err, &pe) && pe.Stderr != "" {
			fmt.Fprint(errOut, pe.Stderr)
		}
		return err
	}
	if res.Output != "" {
		fmt.Fprint(out, res.Output)
	}
	printSuccess("Saved %s (via %s)", res.Filename, e.Source)
	return nil
}

// setupLogging installs the default logger for this run.
func setupLogging(cfg config.Config, verbose bool) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("run", uuid.NewString()))
}

// applyProviderFlags resolves --provider and applies --model to the matching
// provider config. It returns the zero ID when no provider was requested.
func applyProviderFlags(cfg *config.Config, opts *rootOptions) (provider.ID, error) {
	if opts.provider == "" {
		if opts.model != "" {
			printWarning("--model %s ignored: it needs --provider", opts.model)
		}
		return "", nil
	}
	hint, err := provider.ParseID(opts.provider)
	if err != nil {
		return "", err
	}
	if opts.model != "" {
		switch hint {
		case provider.Local:
			cfg.Providers.Local.Model = opts.model
		case provider.Cloud:
			cfg.Providers.Cloud.Model = opts.model
		}
	}
	return hint, nil
}

// buildProviders creates the configured providers in order. A hinted
// provider missing from the order is appended so --provider always works.
func buildProviders(cfg config.Config, hint provider.ID) ([]provider.Provider, error) {
	order, err := cfg.ProviderOrder()
	if err != nil {
		return nil, err
	}
	if !hint.IsZero() && !slices.Contains(order, hint) {
		order = append(order, hint)
	}

	providers := make([]provider.Provider, 0, len(order))
	for _, id := range order {
		switch id {
		case provider.Local:
			client := ollama.New(cfg.Providers.Local.BaseURL)
			providers = append(providers, provider.NewOllama(client, cfg.Providers.Local.Model, cfg.Providers.Local.Timeout))
		case provider.Cloud:
			providers = append(providers, provider.NewOpenAI(provider.OpenAIConfig{
				BaseURL: cfg.Providers.Cloud.BaseURL,
				APIKey:  cfg.Providers.Cloud.APIKey,
				Model:   cfg.Providers.Cloud.Model,
				Timeout: cfg.Providers.Cloud.Timeout,
			}))
		default:
			return nil, fmt.Errorf("%q: %w", id, provider.ErrInvalidID)
		}
	}
	return providers, nil
}

func joinIDs(ids []provider.ID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = id.String()
	}
	return strings.Join(s, ", ")
}

func printEntry(w io.Writer, e entry.Entry) {
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Title:"), e.Title)
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Tags:"), strings.Join(e.Tags, ", "))
	}
	fmt.Fprintf(w, "%s %s\n\n", colorize(colorBold, "Source:"), e.Source)
	fmt.Fprintf(w, "%s\n\n", e.Content)
}

func printAttempts(attempts []structurer.Attempt) {
	printError("no provider produced a usable entry")
	for i, a := range attempts {
		kind := "unknown"
		if a.Kind != nil {
			kind = a.Kind.Error()
		}
		label := fmt.Sprintf("attempt %d", i+1)
		if a.Reinforced {
			label += " (reinforced)"
		}
		printStatus(label, "%s: %s: %s", a.Provider, kind, a.Reason)
	}
}
