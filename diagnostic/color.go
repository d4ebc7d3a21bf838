// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorMode controls when ANSI color codes are used.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // detect based on terminal and NO_COLOR
	ColorAlways                  // always use colors
	ColorNever                   // never use colors
)

// ParseColorMode maps "always", "never" and anything else (auto) to a mode.
func ParseColorMode(s string) ColorMode {
	switch s {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

type palette struct {
	bold     *color.Color
	yellow   *color.Color
	boldRed  *color.Color
	boldBlue *color.Color
	boldCyan *color.Color
	boldGrn  *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		bold:     color.New(color.Bold),
		yellow:   color.New(color.FgYellow, color.Bold),
		boldRed:  color.New(color.FgRed, color.Bold),
		boldBlue: color.New(color.FgBlue, color.Bold),
		boldCyan: color.New(color.FgCyan, color.Bold),
		boldGrn:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.bold, p.yellow, p.boldRed, p.boldBlue, p.boldCyan, p.boldGrn} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// choosePalette selects colors for mode and the writer output goes to.
func choosePalette(mode ColorMode, w io.Writer) palette {
	switch mode {
	case ColorAlways:
		return newPalette(true)
	case ColorNever:
		return newPalette(false)
	default:
		if os.Getenv("NO_COLOR") != "" {
			return newPalette(false)
		}
		f, ok := w.(*os.File)
		return newPalette(ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())))
	}
}
