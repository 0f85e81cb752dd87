// Command gpubuf exercises typed GPU buffers on the registered backends.
package main

import (
	"os"

	"github.com/gogpu/gpubuf/cmd/gpubuf/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
