// Copyright © 2018 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luthersystems/hints/diagnostic"
)

var (
	cfgFile   string
	colorFlag string
	debugFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hints",
	Short: "Quick-fix diagnostics for Go source",
	Long: `hints reports likely mistakes in Go source files and knows how to fix
them. Every finding comes with one or more fixes that can be applied from the
command line or offered as quick fixes by an editor.

Getting started:
  hints check ./...            Check every Go file below the current directory
  hints check --fix file.go    Apply the preferred fix of every finding
  hints rules                  Describe the available rules
  hints lsp                    Serve diagnostics and quick fixes to an editor

Configuration:
  Flags may also be set in $HOME/.hints.yaml (or the file named by --config)
  and through HINTS_* environment variables. Keys of a subcommand are nested
  under its name, e.g.

    color: never
    check:
      exclude: [vendor, "*_gen.go"]
      cache-dir: .hints-cache

  is equivalent to HINTS_COLOR=never HINTS_CHECK_CACHE_DIR=.hints-cache.

More information:
  Source code:     https://github.com/luthersystems/hints`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return applyConfig(cmd.Root().PersistentFlags(), "")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hints.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"Log progress to stderr.")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		// Search config in home directory with name ".hints" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".hints")
	}

	viper.SetEnvPrefix("HINTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		newLogger(os.Stderr).Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// applyConfig fills the flags of fs the user did not set on the command line
// from the config file and the environment. Keys are prefixed with
// "<section>." unless section is empty.
func applyConfig(fs *pflag.FlagSet, section string) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if section != "" {
			key = section + "." + f.Name
		}
		if err != nil || f.Changed || f.Name == "config" || !viper.IsSet(key) {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			err = sv.Replace(viper.GetStringSlice(key))
		} else {
			err = f.Value.Set(viper.GetString(key))
		}
		if err != nil {
			err = fmt.Errorf("config %s: %w", key, err)
		}
	})
	return err
}

func colorMode() diagnostic.ColorMode {
	return diagnostic.ParseColorMode(colorFlag)
}

// newLogger returns the command log. Only warnings are shown unless --debug
// is set.
func newLogger(w io.Writer) *log.Logger {
	level := log.WarnLevel
	if debugFlag {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:  level,
		Prefix: "hints",
	})
}
