// Command arena hosts moderated turn-based debates.
package main

import (
	"os"

	"github.com/Iron-Ham/arena/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
