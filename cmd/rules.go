// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/luthersystems/hints/hint"
)

const defaultWidth = 80

// RulesCommand creates the "rules" cobra command describing the available
// rules.
func RulesCommand(opts ...Option) *cobra.Command {
	cfg := newConfig(opts)
	var width int

	cmd := &cobra.Command{
		Use:   "rules [rule...]",
		Short: "Describe the available rules",
		Long: `Describe the rules hints check runs. With arguments only the named rules
are described. Text is wrapped to the terminal width, or to --width.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyConfig(cmd.LocalNonPersistentFlags(), "rules")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if width <= 0 {
				width = terminalWidth(os.Stdout)
			}
			return runRules(cmd.OutOrStdout(), cfg, args, width)
		},
	}
	cmd.Flags().IntVar(&width, "width", 0,
		"Wrap descriptions to this many columns (default: terminal width).")
	return cmd
}

func init() {
	rootCmd.AddCommand(RulesCommand())
}

func runRules(w io.Writer, cfg *cmdConfig, names []string, width int) error {
	rules := cfg.resolveRules()
	if len(names) > 0 {
		var err error
		if rules, err = selectRules(rules, strings.Join(names, ",")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, hint.RuleDoc(rules, width))
	return err
}

// terminalWidth returns the width of f when it is a terminal.
func terminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
