package commands

import "github.com/fatih/color"

// palette holds the output colors of one invocation. --no-color disables
// them here rather than through the color.NoColor global.
type palette struct {
	tag  *color.Color
	head *color.Color
	word *color.Color
	ok   *color.Color
	warn *color.Color
	bad  *color.Color
}

func newPalette(noColor bool) *palette {
	p := &palette{
		tag:  color.New(color.FgCyan),
		head: color.New(color.FgGreen, color.Bold),
		word: color.New(color.FgYellow),
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		bad:  color.New(color.FgRed),
	}

	if noColor {
		for _, c := range []*color.Color{p.tag, p.head, p.word, p.ok, p.warn, p.bad} {
			c.DisableColor()
		}
	}

	return p
}
