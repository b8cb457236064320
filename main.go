// Command cctr runs a corpus of shell-command tests against typed output
// patterns.
package main

import (
	"os"

	"github.com/andreasjansson/cctr/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
