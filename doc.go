// Package iris is a genetic-algorithm engine for evolving natural-language
// instruction prompts ("experts") toward higher measured fitness.
//
// An evolution run starts from one or more seed prompts, maintains a
// fixed-size population of candidates, and advances it generation by
// generation through tournament selection, elitism, crossover, and six
// mutation strategies. Every generation is snapshotted, which enables both
// lineage reconstruction for any individual and automatic rollback when
// fitness regresses.
//
// Key Components:
//
//   - evolution: The engine itself: population store, mutation and crossover
//     operators, tournament selection, fitness evaluation with batch and
//     concurrent sequential paths, snapshots, lineage, and run statistics.
//
//   - llm: The collaborator boundary. Mutation strategies that benefit from a
//     language model (lamarckian, semantic_rewrite) talk to the Collaborator
//     interface and degrade to deterministic transforms when it is absent or
//     unhealthy. An Anthropic-backed implementation is included.
//
//   - persistence: Best-effort SQLite sinks: a versioned expert store with
//     upgrade history, a local embedding store, and a per-individual decision
//     log.
//
//   - config: YAML configuration with struct-tag validation, wired to the
//     engine's own cross-field checks.
//
//   - logging, errors: Structured leveled logging with run-specific context
//     (expert type, generation) and coded errors with wrapped causes and
//     structured fields.
//
// Example usage:
//
//	engine, err := evolution.NewEngine(evolution.DefaultConfig(),
//	    evolution.WithCollaborator(collaborator),
//	    evolution.WithBestResultSink(versionStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	best, err := engine.Evolve(ctx, seeds, "reviewer", "diff->feedback")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(best.Prompt)
//
// The cmd/iris-evolve directory carries a standalone CLI module for running
// evolutions and inspecting stored versions without writing code.
package iris
