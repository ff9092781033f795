// Command pdfscan inspects PDF files from the command line using the same
// pipeline as the API.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCmd(os.Stdout).Execute()
	if err == nil {
		return
	}

	var ve verdictError
	if errors.As(err, &ve) {
		os.Exit(ve.exitCode())
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
