// Command modelselect trains the candidate families for a task kind on a
// dataset and prints the selection outcome as JSON.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/YuminosukeSato/modelselect/internal/app"
	"github.com/YuminosukeSato/modelselect/internal/cli"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitFailure)
	}
}

func run(outW, errW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, errW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}
	return app.Run(outW, errW, opts)
}
