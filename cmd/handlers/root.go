/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aipedia/internal/config"
	"aipedia/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aipedia",
		Short: "AI-generated encyclopedia articles in your terminal",
		Long: `AIpedia - an AI wiki

Type a topic and get a Wikipedia-style article: title, summary, sections and
references, with an optional photo and narration. Bold terms and links in the
article are wiki links; following one opens a new article about that term in
the context of the current one.

Examples:
  # Generate an article
  aipedia search "black holes" --style concise

  # Browse interactively and follow wiki links
  aipedia browse "black holes"

  # Run the provider proxy
  aipedia serve --port 3000`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .aipedia.yaml in . or $HOME)")

	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewBrowseCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewPrefsCmd())
	rootCmd.AddCommand(NewSpeakCmd())
	rootCmd.AddCommand(NewExportCmd())
	rootCmd.AddCommand(NewStatsCmd())

	cobra.OnInitialize(initConfig)

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		var reported errReported
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if cfg.App.Debug {
		level = "debug"
	}
	logger.Configure(level, cfg.Logging.Format)

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
}
