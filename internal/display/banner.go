package display

import (
	"fmt"
	"os"

	"github.com/backmassage/gamepress/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if term.Enabled() {
		fmt.Fprint(os.Stdout, term.Magenta)
	}
	fmt.Fprint(os.Stdout, `  ____                      ____
 / ___| __ _ _ __ ___   ___|  _ \ _ __ ___  ___ ___
| |  _ / _`+"`"+` | '_ `+"`"+` _ \ / _ \ |_) | '__/ _ \/ __/ __|
| |_| | (_| | | | | | |  __/  __/| | |  __/\__ \__ \
 \____|\__,_|_| |_| |_|\___|_|   |_|  \___||___/___/
`)
	if term.Enabled() {
		fmt.Fprintln(os.Stdout, term.NC)
	}
}
