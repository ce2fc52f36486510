package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fdbesanto2/portalr/internal/errmsg"
)

// printInfo prints an informational message unless quiet mode is enabled
func printInfo(a ...interface{}) {
	if !quietFlag {
		fmt.Println(a...)
	}
}

// printInfof prints a formatted informational message unless quiet mode is enabled
func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, a...)
	}
}

// printJSON marshals the given value to JSON and prints it to stdout
func printJSON(v interface{}) {
	if err := writeJSON(os.Stdout, v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exitWithCode(ExitGeneral)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError prints an error to stderr with suggestions if available.
func printError(err error) {
	printErrorWithContext(err, nil)
}

func printErrorWithContext(err error, ctx *errmsg.ErrorContext) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", errmsg.Format(err, ctx))
}

// fail prints err and exits with the code matching its type.
func fail(err error, ctx *errmsg.ErrorContext) {
	printErrorWithContext(err, ctx)
	exitWithCode(exitCodeFor(err))
}
