package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/irt"
	"github.com/jonathan/interview-engine/internal/observability"
	"github.com/jonathan/interview-engine/internal/questionbank"
	"github.com/jonathan/interview-engine/internal/session"
	"github.com/jonathan/interview-engine/internal/store"
	"github.com/jonathan/interview-engine/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type simulateOptions struct {
	BankPath     string
	Theta        float64
	Seed         uint64
	JobRole      string
	Technologies []string
	MinQuestions int
	MaxQuestions int
	Precision    float64
	Verbose      bool
}

var simulateOpts simulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated candidate through an interview",
	Long: "Runs one in-memory session against a question bank file, answering each question " +
		"at random with the model probability for a candidate of the given true ability.",
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simulateOpts.BankPath, "bank", "b", "", "Path to question bank file (required)")
	f.Float64Var(&simulateOpts.Theta, "theta", 0, "True ability of the simulated candidate")
	f.Uint64Var(&simulateOpts.Seed, "seed", 1, "Random seed")
	f.StringVar(&simulateOpts.JobRole, "role", "software engineer", "Job role used to query the bank")
	f.StringSliceVar(&simulateOpts.Technologies, "tech", nil, "Technologies used to query the bank")
	f.IntVar(&simulateOpts.MinQuestions, "min", 5, "Minimum questions")
	f.IntVar(&simulateOpts.MaxQuestions, "max", 20, "Maximum questions")
	f.Float64Var(&simulateOpts.Precision, "precision", 0.3, "Target standard error")
	f.BoolVarP(&simulateOpts.Verbose, "verbose", "v", false, "Print every selection and bias assessment")

	if err := simulateCmd.MarkFlagRequired("bank"); err != nil {
		panic(fmt.Sprintf("failed to mark bank flag as required: %v", err))
	}
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	_, err := simulate(cmd.Context(), simulateOpts, cmd.OutOrStdout(), zap.NewNop())
	return err
}

// simulate runs one session to completion and prints its trail to out.
func simulate(ctx context.Context, opts simulateOptions, out io.Writer, log *zap.Logger) (types.SessionSnapshot, error) {
	bank, err := questionbank.LoadFile(opts.BankPath)
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	engine, err := session.New(store.NewMemory(), bank, session.Options{DisableTimers: true, Logger: log})
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	defer engine.Close()

	printer := observability.NewPrinter(out)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	items := bank.Items()

	snap, err := engine.Schedule(ctx, types.ScheduleSessionRequest{
		CandidateID:  uuid.NewString(),
		JobRole:      opts.JobRole,
		Technologies: opts.Technologies,
		Config: &types.SessionConfigOverrides{
			MinQuestions:       &opts.MinQuestions,
			MaxQuestions:       &opts.MaxQuestions,
			PrecisionThreshold: &opts.Precision,
		},
	})
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	if snap, err = engine.Start(ctx, snap.SessionID); err != nil {
		return types.SessionSnapshot{}, err
	}

	var asked []types.QuestionItem
	var scores []float64
	for !snap.Status.IsTerminal() {
		if snap.CurrentQuestionID == nil {
			return snap, errors.New("session in progress without a question")
		}
		item, ok := types.FindQuestion(items, *snap.CurrentQuestionID)
		if !ok {
			return snap, fmt.Errorf("question %q not in bank", *snap.CurrentQuestionID)
		}

		correct := rng.Float64() < irt.Probability(opts.Theta, item)
		result, err := engine.SubmitResponse(ctx, snap.SessionID, types.SubmitResponseRequest{
			QuestionID:          item.ID,
			Correct:             &correct,
			ResponseTimeSeconds: float64(max(item.ExpectedDurationSeconds, 1)),
		})
		if err != nil {
			return snap, err
		}
		asked = append(asked, item)
		scores = append(scores, boolScore(correct))

		if opts.Verbose {
			fmt.Fprintf(out, "%s answered correct=%t\n", item.ID, correct)
			printer.PrintBias(&result.Bias)
			printer.PrintSelection(result.Next)
		}
		snap = result.Snapshot
	}

	printer.PrintSnapshot(&snap)
	if opts.Verbose {
		entries, err := engine.Audit(ctx, snap.SessionID)
		if err != nil {
			return snap, err
		}
		printer.PrintAudit(entries)
	}

	theta, se, err := irt.EAP(asked, scores, snap.Config.InitialTheta, snap.Config.InitialSE)
	if err != nil {
		fmt.Fprintf(out, "EAP cross-check unavailable: %v\n", err)
	} else {
		fmt.Fprintf(out, "True theta %+.3f, estimate %+.3f, EAP %+.3f (SE %.3f)\n",
			opts.Theta, snap.Ability.Theta, theta, se)
	}
	return snap, nil
}

func boolScore(correct bool) float64 {
	if correct {
		return 1
	}
	return 0
}
