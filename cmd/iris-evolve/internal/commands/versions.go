package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxruv/iris-go/pkg/persistence"
)

// NewVersionsCommand builds the versions subcommand for inspecting stored
// expert versions and their upgrade history.
func NewVersionsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "versions <expert-type>",
		Short: "Show the latest stored version and upgrade history for an expert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expertType := args[0]

			store, err := persistence.NewVersionStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			latest, err := store.Latest(cmd.Context(), expertType)
			if err != nil {
				return err
			}

			fmt.Printf("Expert: %s\nVersion: %s\nSignature: %s\nFitness: %.3f\n\n%s\n",
				latest.ExpertType, latest.Version, latest.Signature,
				latest.PerformanceMetrics["fitness"], latest.Prompt)

			upgrades, err := store.Upgrades(cmd.Context(), expertType)
			if err != nil {
				return err
			}
			if len(upgrades) > 0 {
				fmt.Println("\nUpgrade history:")
				for _, u := range upgrades {
					fmt.Printf("  %s -> %s  improvement %+.3f over %d generations\n",
						u.FromVersion, u.ToVersion, u.FitnessImprovement, u.GenerationsEvolved)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "versions.db", "Path to the version store database")
	return cmd
}
