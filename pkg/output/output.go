package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jwalton/go-supportscolor"

	"github.com/vertti/cpopen/pkg/check"
)

var (
	green = "\033[32m"
	red   = "\033[31m"
	dim   = "\033[2m"
	reset = "\033[0m"
)

func init() {
	if !supportscolor.Stdout().SupportsColor {
		green, red, dim, reset = "", "", "", ""
	}
}

// PrintResult outputs a check result with colored status to stdout.
func PrintResult(r check.Result) {
	Fprint(os.Stdout, r)
}

// Fprint writes a check result to w.
func Fprint(w io.Writer, r check.Result) {
	if r.OK() {
		fmt.Fprintf(w, "%s[OK]%s %s\n", green, reset, r.Name)
	} else {
		fmt.Fprintf(w, "%s[FAIL]%s %s\n", red, reset, r.Name)
	}
	for _, d := range r.Details {
		fmt.Fprintf(w, "     %s\n", formatLabel(d))
	}
}

// formatLabel dims the "label:" prefix of a detail line.
func formatLabel(s string) string {
	label, rest, ok := strings.Cut(s, ": ")
	if !ok || dim == "" {
		return s
	}
	return dim + label + ":" + reset + " " + rest
}
