package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/secretpipe/cmd/pipelinectl/commands"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:           "pipelinectl",
		Short:         "Operator tooling for secretpipe workflows and runners",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		commands.NewWorkflowCommand(),
		commands.NewBootstrapCommand(),
		commands.NewKeygenCommand(),
	)

	return rootCmd.Execute()
}
