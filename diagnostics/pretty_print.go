package diagnostics

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// PrettyPrint writes err for human reading. When err carries a source
// position, the offending line of text is shown with the failing token
// highlighted. Errors without a position are printed on one line.
func PrettyPrint(w io.Writer, fileName, text string, err error) error {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	titleColor := color.New(color.Bold)
	errColor := color.New(color.FgRed, color.Bold)

	var positioned Positioned
	if !errors.As(err, &positioned) || !positioned.Pos().IsValid() {
		errColor.Fprint(w, "error")
		titleColor.Fprintf(w, ": %s\n", err)
		return nil
	}

	pos := positioned.Pos()
	lines := strings.Split(text, "\n")
	if pos.Line > len(lines) {
		errColor.Fprint(w, "error")
		titleColor.Fprintf(w, ": %s\n", err)
		return nil
	}

	arrowColor := color.New(color.FgCyan, color.Bold)
	lineNumColor := color.New(color.FgCyan, color.Bold)

	errColor.Fprint(w, "error")
	titleColor.Fprintf(w, ": %s\n", err)
	arrowColor.Fprint(w, "  --> ")
	fmt.Fprintf(w, "%s:%s\n", fileName, pos)
	lineNumColor.Fprint(w, "   | \n")

	line := lines[pos.Line-1]
	start := pos.Column - 1
	if start < 0 {
		start = 0
	}
	if start > len(line) {
		start = len(line)
	}
	end := start + tokenLength(line[start:])

	lineNumColor.Fprintf(w, "%2d | ", pos.Line)
	fmt.Fprint(w, line[:start])
	errColor.Fprint(w, line[start:end])
	fmt.Fprintln(w, line[end:])

	lineNumColor.Fprint(w, "   | ")
	fmt.Fprint(w, strings.Repeat(" ", start))
	errColor.Fprintln(w, "^")
	return nil
}

// tokenLength returns the length of the word starting at s.
func tokenLength(s string) int {
	for i, r := range s {
		if r == ' ' || r == '\t' || r == ',' || r == ')' || r == '(' {
			if i == 0 {
				return 1
			}
			return i
		}
	}
	return len(s)
}
