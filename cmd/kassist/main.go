// Command kassist is the entry point for the knowledge assistant. It answers
// questions by routing them to a calculator, a dictionary lookup, or
// retrieval-augmented generation over an ingested document index, from the
// command line or over an HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/kassist-go/cmd/kassist/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
