// Terminal client for the Dev Mud chat assistant.
package main

import (
	"fmt"
	"os"

	"github.com/devmud/devmud-site/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
