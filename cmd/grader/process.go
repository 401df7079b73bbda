package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/grading"
	"github.com/ahrav/go-grader/internal/worker"
)

func processCmd() *cobra.Command {
	var (
		temporalFlag bool
		waitFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "process [assignment-file]",
		Short: "Store an assignment and grade it",
		Long: `Reads an assignment with its student works from a YAML or JSON file,
stores it and runs rubric generation, student feedback and the class summary.

By default grading runs in this process. Use --temporal to hand the stored
assignment to a worker instead, and --wait to block until it finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := readAssignment(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := worker.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Store.SaveAssignment(ctx, a); err != nil {
				return fmt.Errorf("failed to save assignment: %w", err)
			}

			var out *grading.ProcessAssignmentOutput
			if temporalFlag {
				c, err := worker.Dial(cfg.Temporal)
				if err != nil {
					return err
				}
				defer c.Close()

				run, err := worker.StartGrading(ctx, c, cfg.Temporal, a.ID)
				if err != nil {
					return err
				}
				slog.Info("Grading workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
				if !waitFlag {
					return nil
				}
				out = new(grading.ProcessAssignmentOutput)
				if err := run.Get(ctx, out); err != nil {
					return fmt.Errorf("grading workflow failed: %w", err)
				}
			} else {
				out, err = app.Activities.ProcessAssignment(ctx, grading.ProcessAssignmentInput{AssignmentID: a.ID})
				if err != nil {
					return err
				}
			}

			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("assignment %s finished in state %s", out.AssignmentID, out.State)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&temporalFlag, "temporal", false, "start a Temporal workflow instead of grading in-process")
	cmd.Flags().BoolVar(&waitFlag, "wait", false, "with --temporal, wait for the workflow result")
	return cmd
}

// readAssignment loads an assignment document. JSON is accepted because it
// is valid YAML. Student works without an assignment id inherit it.
func readAssignment(path string) (*domain.Assignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assignment %s: %w", path, err)
	}
	var a domain.Assignment
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse assignment %s: %w", path, err)
	}
	for i := range a.StudentWorks {
		if a.StudentWorks[i].AssignmentID == "" {
			a.StudentWorks[i].AssignmentID = a.ID
		}
	}
	if a.FeedbackTone == "" {
		a.FeedbackTone = domain.ToneEncouraging
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
