// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luthersystems/hints/lsp"
)

// LSPCommand creates the "lsp" cobra command. Embedders can pass WithRules to
// serve their own rules.
func LSPCommand(opts ...Option) *cobra.Command {
	cfg := newConfig(opts)

	var (
		stdio bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the hints Language Server Protocol server",
		Long: `Start an LSP server publishing hints for Go source files.

Diagnostics are published as documents are opened and edited, and every
finding offers its fixes as quick fixes. Files on disk are never written by
the server; edits are returned to the editor.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  hints lsp                          Start with stdio transport
  hints lsp --port 7998              Start with TCP on port 7998`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyConfig(cmd.LocalNonPersistentFlags(), "lsp")
		},
		Run: func(_ *cobra.Command, _ []string) {
			logger := newLogger(os.Stderr)
			serverOpts := []lsp.Option{
				lsp.WithRules(cfg.resolveRules()...),
				lsp.WithLogger(logger),
			}
			if cfg.fs != nil {
				serverOpts = append(serverOpts, lsp.WithFs(cfg.fs))
			}
			srv := lsp.New(serverOpts...)

			var err error
			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				logger.Info("listening", "addr", addr)
				err = srv.RunTCP(addr)
			} else {
				err = srv.RunStdio()
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "lsp server error: %v\n", err) //nolint:errcheck
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")

	return cmd
}

func init() {
	rootCmd.AddCommand(LSPCommand())
}
