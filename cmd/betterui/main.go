// Command betterui runs the capability execution engine and its client
// commands.
package main

import (
	"os"

	"github.com/lantos1618/better-ui-sub002/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
