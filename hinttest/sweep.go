// Copyright © 2024 The ELPS authors

package hinttest

import (
	"fmt"

	"github.com/luthersystems/hints/hint"
)

// Oracle judges the diagnostics reported at one offset.
type Oracle func(offset int, diags []*hint.Diagnostic) error

// Sweep runs fn at every byte offset of code, from 0 to len(code)-1. The
// workspace is rebuilt before each offset so nothing carries over between
// runs. Sweep stops at the first offset where preparing, running or the
// oracle fails.
func Sweep(ws *Workspace, fileName, code string, fn Func, oracle Oracle) error {
	for i := 0; i < len(code); i++ {
		if ws.log != nil {
			ws.log.Debug("testing position", "offset", i, "char", string(code[i]))
		}
		info, err := ws.Prepare(fileName, code)
		if err != nil {
			return fmt.Errorf("offset %d: %w", i, err)
		}
		diags, err := Run(info, i, fn)
		if err != nil {
			return fmt.Errorf("offset %d: %w", i, err)
		}
		if err := oracle(i, diags); err != nil {
			return fmt.Errorf("offset %d: %w", i, err)
		}
	}
	return nil
}
