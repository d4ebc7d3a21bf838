// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/spf13/afero"

	"github.com/luthersystems/hints/hint"
)

// Option configures an exported command factory (CheckCommand, RulesCommand,
// LSPCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	rules []*hint.Rule
	fs    afero.Fs
}

// WithRules replaces the built-in rules. Embedders use it to ship their own
// rules, alone or next to hint.DefaultRules().
func WithRules(rules ...*hint.Rule) Option {
	return func(c *cmdConfig) { c.rules = rules }
}

// WithFs sets the file system sources are read from. The check command also
// writes fixes and its cache to it.
func WithFs(fs afero.Fs) Option {
	return func(c *cmdConfig) { c.fs = fs }
}

func newConfig(opts []Option) *cmdConfig {
	var cfg cmdConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &cfg
}

// resolveRules returns the injected rules, falling back to the built-in ones.
func (c *cmdConfig) resolveRules() []*hint.Rule {
	if c.rules != nil {
		return c.rules
	}
	return hint.DefaultRules()
}
