// Command bp12 queries and plots BIOPERIANT12 model output from the command
// line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
