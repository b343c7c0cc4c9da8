package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/evoforge/evoforge/pkg/constraints"
	"github.com/evoforge/evoforge/pkg/core"
	"github.com/evoforge/evoforge/pkg/engine"
	"github.com/evoforge/evoforge/pkg/evaluation"
	"github.com/evoforge/evoforge/pkg/export"
	"github.com/evoforge/evoforge/pkg/genes/itinerary"
	"github.com/evoforge/evoforge/pkg/genes/searchquery"
	"github.com/evoforge/evoforge/pkg/logging"
	"github.com/evoforge/evoforge/pkg/oracle"
	"github.com/evoforge/evoforge/pkg/retry"
)

var runFlags struct {
	configPath  string
	variant     string
	query       string
	taskFile    string
	budget      float64
	model       string
	searchURL   string
	archivePath string
	threshold   float64
	historyPath string
	checkpoint  string
	resume      bool
	verbose     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one evolution run",
	RunE:  runEvolution,
}

func init() {
	flags := runCmd.Flags()
	flags.StringVarP(&runFlags.configPath, "config", "c", "", "YAML evolution config (defaults apply when omitted)")
	flags.StringVar(&runFlags.variant, "variant", searchquery.CodecName, "gene variant: searchquery or itinerary")
	flags.StringVarP(&runFlags.query, "query", "q", "", "user query to optimize retrieval for (searchquery)")
	flags.StringVar(&runFlags.taskFile, "task-file", "", "file holding the planning brief (itinerary)")
	flags.Float64Var(&runFlags.budget, "budget", 5500, "budget ceiling for the itinerary variant")
	flags.StringVar(&runFlags.model, "model", string(anthropic.ModelClaudeSonnet4_5_20250929), "Anthropic model id")
	flags.StringVar(&runFlags.searchURL, "search-url", os.Getenv("EVOFORGE_SEARCH_URL"), "search gateway base URL (searchquery)")
	flags.StringVar(&runFlags.archivePath, "archive", "", "sqlite path for the high-scorer archive")
	flags.Float64Var(&runFlags.threshold, "archive-threshold", 8.0, "minimum score to archive")
	flags.StringVarP(&runFlags.historyPath, "out", "o", "", "write generation history parquet here")
	flags.StringVar(&runFlags.checkpoint, "checkpoint", "", "checkpoint file, written after every generation")
	flags.BoolVar(&runFlags.resume, "resume", false, "resume from the checkpoint file instead of seeding")
	flags.BoolVarP(&runFlags.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
}

func runEvolution(cmd *cobra.Command, args []string) error {
	severity := logging.INFO
	if runFlags.verbose {
		severity = logging.DEBUG
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: severity,
		Outputs:  []logging.Output{logging.NewConsoleOutput(true, logging.WithColor(true))},
	}))

	cfg := core.DefaultEvolutionConfig()
	if runFlags.configPath != "" {
		var err error
		cfg, err = core.LoadConfig(runFlags.configPath)
		if err != nil {
			return err
		}
	}

	generator, err := oracle.NewAnthropicGenerator(os.Getenv("ANTHROPIC_API_KEY"), anthropic.Model(runFlags.model))
	if err != nil {
		return err
	}

	policy := retry.NewPolicy(cfg.RetryCount)
	llmOracle, err := oracle.NewLLMOracle(oracle.LLMOracleConfig{
		Generator: generator,
		Policy:    policy,
		Timeout:   cfg.Timeout.Std(),
	})
	if err != nil {
		return err
	}

	codec, constraintSet, evalTemplate, err := buildVariant()
	if err != nil {
		return err
	}

	scorer, err := evaluation.NewLLMEvaluator(evaluation.LLMEvaluatorConfig{
		Generator:  generator,
		Templates:  llmOracle.Templates(),
		TemplateID: evalTemplate,
		Policy:     policy,
		Timeout:    cfg.Timeout.Std(),
	})
	if err != nil {
		return err
	}

	var evaluator evaluation.Evaluator = scorer
	if runFlags.archivePath != "" {
		archive, err := evaluation.NewArchive(runFlags.archivePath)
		if err != nil {
			return err
		}
		defer archive.Close()
		evaluator = evaluation.NewArchiveEvaluator(evaluator, archive, runFlags.threshold)
	}
	evaluator = evaluation.NewCachedEvaluator(evaluator)

	var checkpointer *engine.FileCheckpointer
	if runFlags.checkpoint != "" {
		checkpointer = engine.NewFileCheckpointer(runFlags.checkpoint)
	}
	if runFlags.resume && checkpointer == nil {
		return fmt.Errorf("--resume requires --checkpoint")
	}

	opts := engine.Options{
		Codec:       codec,
		Oracle:      llmOracle,
		Evaluator:   evaluator,
		Constraints: constraintSet,
		Telemetry:   engine.LogTelemetry{},
	}
	if checkpointer != nil {
		opts.Checkpointer = checkpointer
	}

	eng, err := engine.New(cfg, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result *engine.RunResult
	if runFlags.resume {
		cp, err := checkpointer.Load()
		if err != nil {
			return err
		}
		result, err = eng.Resume(ctx, cp)
		if err != nil {
			return err
		}
	} else {
		result, err = eng.Run(ctx)
		if err != nil {
			return err
		}
	}

	printResult(result)

	if runFlags.historyPath != "" {
		if err := export.WriteHistory(result, runFlags.historyPath); err != nil {
			return err
		}
		fmt.Printf("History written to %s\n", runFlags.historyPath)
	}
	return nil
}

func buildVariant() (core.Codec, *constraints.Set, string, error) {
	switch runFlags.variant {
	case searchquery.CodecName:
		if runFlags.query == "" {
			return nil, nil, "", fmt.Errorf("--query is required for the searchquery variant")
		}
		searcher := searchquery.NewCachingSearcher(
			searchquery.NewSerperSearcher(runFlags.searchURL, os.Getenv("EVOFORGE_SEARCH_API_KEY")))
		codec, err := searchquery.NewCodec(searchquery.CodecConfig{
			UserQuery: runFlags.query,
			Searcher:  searcher,
		})
		if err != nil {
			return nil, nil, "", err
		}
		return codec, searchquery.Constraints(), searchquery.TemplateEvaluate, nil

	case itinerary.CodecName:
		if runFlags.taskFile == "" {
			return nil, nil, "", fmt.Errorf("--task-file is required for the itinerary variant")
		}
		brief, err := os.ReadFile(runFlags.taskFile)
		if err != nil {
			return nil, nil, "", err
		}
		codec, err := itinerary.NewCodec(string(brief))
		if err != nil {
			return nil, nil, "", err
		}
		return codec, itinerary.Constraints(runFlags.budget), itinerary.TemplateEvaluate, nil

	default:
		return nil, nil, "", fmt.Errorf("unknown gene variant %q", runFlags.variant)
	}
}

func printResult(result *engine.RunResult) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	fmt.Println()
	bold.Printf("Run %s finished: %s after %d generation(s)\n", result.RunID, result.Reason, result.Generation)
	if result.Best != nil && result.Best.Scored {
		green.Printf("Best score: %.3f (lineage %s)\n", result.Best.Score, result.Best.LineageID)
		fmt.Println()
		fmt.Println(result.Best.Gene.ToText())
	} else {
		fmt.Println("No scored candidate survived the run.")
	}
}
