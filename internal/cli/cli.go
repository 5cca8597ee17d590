// Package cli implements the tfsctl command line interface.
package cli

import (
	"bufio"
	"os"

	"github.com/mitchellh/cli"
)

// Version is the tfsctl version, set at build time with -ldflags.
var Version = "dev"

const cliName = "tfsctl"

// Commands returns the tfsctl command factories sharing meta.
func Commands(meta Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"query": func() (cli.Command, error) {
			return &QueryCommand{Meta: meta}, nil
		},
		"get": func() (cli.Command, error) {
			return &GetCommand{Meta: meta}, nil
		},
		"get-batch": func() (cli.Command, error) {
			return &GetBatchCommand{Meta: meta}, nil
		},
		"create": func() (cli.Command, error) {
			return &CreateCommand{Meta: meta}, nil
		},
		"update": func() (cli.Command, error) {
			return &UpdateCommand{Meta: meta}, nil
		},
		"attach": func() (cli.Command, error) {
			return &AttachCommand{Meta: meta}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{Meta: meta}, nil
		},
	}
}

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	if len(args) == 2 &&
		(args[1] == "-version" ||
			args[1] == "-v") {
		args = []string{args[0], "version"}
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := &cli.CLI{
		Name:       cliName,
		Args:       args[1:],
		Version:    Version,
		Commands:   Commands(Meta{UI: ui}),
		HelpWriter: os.Stderr,
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	return exitCode
}
