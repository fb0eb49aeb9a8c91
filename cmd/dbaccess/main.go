// Command dbaccess runs CRUD statements and CSV ingestion against any
// supported relational backend.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

func main() {
	root, a := newRootCmd()
	if err := execute(root, a); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err and any hints attached along its chain.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, h := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "Hint: %s\n", h)
	}
}
