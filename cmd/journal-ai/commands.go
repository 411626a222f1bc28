package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/journal-ai/internal/config"
	"github.com/kalambet/journal-ai/internal/doctor"
)

// --- config ---

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return usageError{err}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", cfg.Path)
			for _, k := range config.ShowAll(cfg) {
				fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
			}
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a configuration value.\n\nValid keys:\n  " +
			strings.Join(config.ValidKeys(), "\n  ") +
			"\n\nproviders.cloud.api_key is stored in the platform secret store, not the config file.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if err := config.SetKey(opts.configPath, key, value); err != nil {
				return usageError{err}
			}

			if key == "providers.cloud.api_key" {
				printSuccess("Stored %s", key)
				return nil
			}
			printSuccess("Set %s = %s", key, value)
			return nil
		},
	}

	unsetCmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value so its default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.UnsetKey(opts.configPath, args[0]); err != nil {
				return usageError{err}
			}
			printSuccess("Unset %s", args[0])
			return nil
		},
	}

	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(setCmd)
	configCmd.AddCommand(unsetCmd)
	return configCmd
}

// --- doctor ---

var errUnhealthy = errors.New("some checks failed")

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var pull bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the local model, cloud credentials and journal command",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return usageError{err}
			}
			setupLogging(cfg, false)

			checks, err := doctor.Run(cmd.Context(), cfg, doctor.Options{Pull: pull, Progress: errOut})
			if err != nil {
				return err
			}
			for _, c := range checks {
				if c.OK {
					printSuccess("%s: %s", c.Name, c.Detail)
				} else {
					printError("%s: %s", c.Name, c.Detail)
				}
			}
			if !doctor.Healthy(checks) {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pull, "pull", false, "download the local model if it is missing")
	return cmd
}

// --- version ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "journal-ai version %s\n", version)
		},
	}
}
