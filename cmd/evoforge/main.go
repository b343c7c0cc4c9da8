package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "evoforge",
	Short: "Hybrid evolutionary optimization driven by a generative oracle",
	Long: `evoforge runs genetic optimization where generation, crossover, and
mutation are delegated to a large language model. Bundled gene variants:

  searchquery  optimize a weighted web search expression for a question
  itinerary    optimize a structured multi-day travel plan

Runs terminate on generation limits, stagnation, or a wall-clock budget.`,
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
