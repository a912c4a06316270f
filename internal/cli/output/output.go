// Package output renders CLI results in a mode suited to the consumer:
// styled text on a terminal, markdown when piped, or JSON on request.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects the output format.
type Mode string

const (
	// ModeAuto picks text on a TTY, markdown otherwise.
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	styles *Styles
	isTTY  bool
}

// NewRenderer creates a renderer for the given writers and mode.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	isTTY := false
	styled := false
	if f, ok := out.(*os.File); ok {
		isTTY = isTerminal(f)
		styled = isTTY && !termenv.NewOutput(f).EnvNoColor()
	}
	styles := NewStyles()
	if !styled {
		styles = plainStyles()
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		styles: styles,
		isTTY:  isTTY,
	}
}

// NewRendererWithTTY creates a renderer with an explicit TTY state, used by
// tests to exercise both text and non-text paths deterministically. Styles
// stay plain so captured output is stable.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		styles: plainStyles(),
		isTTY:  isTTY,
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// Writer returns the underlying output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Styles returns the style set used for text mode.
func (r *Renderer) Styles() *Styles { return r.styles }

// IsTTY reports whether the output is an interactive terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// EffectiveMode resolves ModeAuto to a concrete mode.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Println writes a line to the output writer.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the output writer.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section heading, styled in text mode and as a markdown
// heading otherwise.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeText {
		r.Println(r.styles.Header.Render(text))
		return
	}
	r.Println(FormatHeader(level, text))
	r.Println("")
}

// Success writes a success line.
func (r *Renderer) Success(text string) {
	if r.EffectiveMode() == ModeText {
		r.Println(r.styles.Success.Render("✓ " + text))
		return
	}
	r.Println("✓ " + text)
}

// Error writes an error line to the error writer.
func (r *Renderer) Error(text string) {
	if r.EffectiveMode() == ModeText {
		_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("✗ "+text))
		return
	}
	_, _ = fmt.Fprintln(r.errOut, "✗ "+text)
}

// Warning writes a warning line.
func (r *Renderer) Warning(text string) {
	if r.EffectiveMode() == ModeText {
		r.Println(r.styles.Warning.Render("! " + text))
		return
	}
	r.Println("! " + text)
}

// Muted writes de-emphasized text.
func (r *Renderer) Muted(text string) {
	if r.EffectiveMode() == ModeText {
		r.Println(r.styles.Muted.Render(text))
		return
	}
	r.Println(text)
}

// StatusLine writes a "label: value" pair.
func (r *Renderer) StatusLine(label, value string) {
	if r.EffectiveMode() == ModeText {
		r.Printf("%s %s\n", r.styles.Label.Render(label+":"), value)
		return
	}
	r.Println(FormatKeyValue(label, value))
}

// JSON marshals v with indentation to the output writer.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatHeader renders a markdown heading of the given level.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue renders a markdown "- **key**: value" line.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Label   lipgloss.Style
}

// NewStyles returns the default style set.
func NewStyles() *Styles {
	return &Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Label:   lipgloss.NewStyle().Bold(true),
	}
}

// plainStyles returns unstyled passthrough styles for non-TTY or NO_COLOR
// environments.
func plainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Header:  plain,
		Success: plain,
		Error:   plain,
		Warning: plain,
		Muted:   plain,
		Label:   plain,
	}
}
