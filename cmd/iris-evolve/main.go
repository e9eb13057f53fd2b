package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxruv/iris-go/cmd/iris-evolve/internal/commands"
)

var rootCmd = &cobra.Command{
	Use:   "iris-evolve",
	Short: "Evolve expert prompts with a genetic algorithm",
	Long: `iris-evolve runs prompt evolution from the command line: seed prompts go
in, generations of mutation, crossover, and selection run, and the fittest
prompt comes out, optionally persisted as a new expert version.`,
	Version: "0.1.0",
}

func main() {
	rootCmd.AddCommand(commands.NewEvolveCommand())
	rootCmd.AddCommand(commands.NewVersionsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
