// vigilctl - VIGIL operator command line
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ashureev/vigil/internal/cli"
)

// Set by ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// A missing .env is normal; the environment is used as is.
	_ = godotenv.Load()

	cli.SetVersionInfo(version, commit)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
