package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/ledgerdesk/modules/companies/services"
	"github.com/iota-uz/ledgerdesk/pkg/tabular"
)

const (
	exitFailure       = 1
	exitNoRows        = 2
	exitPartial       = 3
	exitInputRejected = 4
)

// codedError carries the process exit status for an error.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

func exitCode(err error) int {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	switch {
	case errors.Is(err, tabular.ErrNoRows):
		return exitNoRows
	case errors.Is(err, tabular.ErrParse),
		errors.Is(err, tabular.ErrHeaderNotFound),
		errors.Is(err, services.ErrUnsupportedFile),
		errors.Is(err, services.ErrEmptyFile),
		errors.Is(err, services.ErrFileTooLarge):
		return exitInputRejected
	}
	return exitFailure
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "companies-import",
		Short:         "Clean and import Companies House basic company data extracts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newCleanCmd(), newImportCmd(), newDetectCmd())
	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return readAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withCode(exitFailure, err)
	}
	return data, nil
}
