package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/foxruv/iris-go/pkg/config"
	"github.com/foxruv/iris-go/pkg/evolution"
	"github.com/foxruv/iris-go/pkg/llm"
	"github.com/foxruv/iris-go/pkg/logging"
	"github.com/foxruv/iris-go/pkg/persistence"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// NewEvolveCommand builds the evolve subcommand: the full run, end to end.
func NewEvolveCommand() *cobra.Command {
	var configPath string
	var seeds []string
	var seedFile string
	var expertType string
	var signature string
	var randSeed int64

	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Run prompt evolution from seed prompts",
		Long: `Run the full evolution loop: initialize a population from seed prompts,
evaluate and evolve it for the configured number of generations, and print
the fittest prompt. Persistence sinks configured in the YAML file receive
the winner and the per-individual decision log.`,
		Example: `  # Evolve a code-review expert from two seeds
  iris-evolve evolve --config evolution.yaml --expert-type reviewer \
    --seed "You are a code reviewer. Focus on correctness." \
    --seed "You are an expert reviewer specializing in Go. Your goal is clarity."

  # Read seeds from a file, one prompt per line
  iris-evolve evolve --config evolution.yaml --expert-type planner --seed-file seeds.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)

			if seedFile != "" {
				fileSeeds, err := readSeedFile(seedFile)
				if err != nil {
					return err
				}
				seeds = append(seeds, fileSeeds...)
			}

			opts := []evolution.Option{}
			if randSeed != 0 {
				opts = append(opts, evolution.WithRandSeed(randSeed))
			}

			if cfg.Collaborator.Provider == "anthropic" {
				model := cfg.Collaborator.Model
				if model == "" {
					model = defaultAnthropicModel
				}
				collaborator, err := llm.NewAnthropicCollaborator(cfg.Collaborator.APIKey, anthropic.Model(model))
				if err != nil {
					return err
				}
				opts = append(opts, evolution.WithCollaborator(collaborator))
			}

			if cfg.Persistence.VersionDB != "" {
				store, err := persistence.NewVersionStore(cfg.Persistence.VersionDB)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, evolution.WithBestResultSink(store))
			}
			if cfg.Persistence.EmbeddingDB != "" {
				store, err := persistence.NewEmbeddingStore(cfg.Persistence.EmbeddingDB, nil)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, evolution.WithBestResultSink(store))
			}
			if cfg.Persistence.DecisionDB != "" {
				log, err := persistence.NewDecisionLog(cfg.Persistence.DecisionDB)
				if err != nil {
					return err
				}
				defer log.Close()
				opts = append(opts, evolution.WithDecisionSink(log))
			}

			engine, err := evolution.NewEngine(cfg.EvolutionConfig(), opts...)
			if err != nil {
				return err
			}

			best, err := engine.Evolve(cmd.Context(), seeds, expertType, signature)
			if err != nil {
				return err
			}

			stats := engine.Store().Statistics()
			fmt.Printf("\nBest prompt (fitness %.3f, generation %d):\n\n%s\n\n", best.Fitness, best.Generation, best.Prompt)
			fmt.Printf("best_fitness=%.3f avg_diversity=%.3f improvement_rate=%.2f convergence_rate=%.2f\n",
				stats.BestFitness, stats.AverageDiversity, stats.ImprovementRate, stats.ConvergenceRate)

			if lineage := engine.Store().Lineage(best.ID); len(lineage) > 1 {
				fmt.Printf("\nLineage (%d ancestors):\n", len(lineage)-1)
				for _, ancestor := range lineage {
					tags := make([]string, len(ancestor.MutationTags))
					for i, tag := range ancestor.MutationTags {
						tags[i] = string(tag)
					}
					fmt.Printf("  gen %d  fitness %.3f  %s\n", ancestor.Generation, ancestor.Fitness, strings.Join(tags, ","))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "evolution.yaml", "Path to the YAML configuration file")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "Seed prompt (repeatable)")
	cmd.Flags().StringVar(&seedFile, "seed-file", "", "File with one seed prompt per line")
	cmd.Flags().StringVar(&expertType, "expert-type", "", "Expert type being evolved")
	cmd.Flags().StringVar(&signature, "signature", "", "Input->output signature of the expert")
	cmd.Flags().Int64Var(&randSeed, "rand-seed", 0, "Fixed random seed for reproducible runs")
	_ = cmd.MarkFlagRequired("expert-type")

	return cmd
}

func setupLogging(cfg *config.Config) {
	outputs := []logging.Output{logging.NewConsoleOutput(true)}
	if cfg.Logging.File != "" {
		if fileOut, err := logging.NewFileOutput(cfg.Logging.File); err == nil {
			outputs = append(outputs, fileOut)
		} else {
			fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", cfg.Logging.File, err)
		}
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.Logging.Level),
		Outputs:  outputs,
	}))
}

func readSeedFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			seeds = append(seeds, line)
		}
	}
	return seeds, scanner.Err()
}
