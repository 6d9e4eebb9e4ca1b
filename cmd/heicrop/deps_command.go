package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"heicrop/internal/deps"
	"heicrop/internal/preflight"
	"heicrop/internal/sessionctl"
)

type depsReport struct {
	Checks       []preflight.Result           `json:"checks"`
	Dependencies []deps.Status                `json:"dependencies"`
	Summary      sessionctl.DependencySummary `json:"summary"`
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check directories, the transcoder, and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			report := depsReport{
				Checks:       preflight.RunAll(cmd.Context(), cfg),
				Dependencies: statuses,
				Summary:      sessionctl.SummarizeDependencies(statuses),
			}

			if ctx.jsonFlag {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(report.Checks))
				for _, check := range report.Checks {
					rows = append(rows, []string{check.Name, yesNo(check.Passed), check.Detail})
				}
				fmt.Fprint(out, renderTable([]string{"Check", "Passed", "Detail"}, rows))
				fmt.Fprintln(out)
				p := newPrinter(out)
				p.section("External tools")
				renderDependencies(p, report.Dependencies, report.Summary)
			}

			failed := preflight.Failed(report.Checks)
			missing := deps.Missing(report.Dependencies)
			if len(failed) > 0 || len(missing) > 0 {
				return errors.New("heicrop is not ready; see the failed checks above")
			}
			return nil
		},
	}
}
