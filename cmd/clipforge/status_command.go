package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "status [jobID]",
		Short: "Show job status; with a job ID, show details and segments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return printJobDetail(cmd, store, args[0])
			}

			var statuses []ledger.Status
			for _, s := range listStatuses {
				statuses = append(statuses, ledger.Status(s))
			}
			jobs, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					string(job.Kind),
					string(job.Status),
					job.Stage,
					fmt.Sprintf("%.0f%%", job.Progress),
					job.CreatedAt.Local().Format(time.RFC3339),
				})
			}
			out := renderTable([]column{
				{title: "ID"},
				{title: "Kind"},
				{title: "Status"},
				{title: "Stage"},
				{title: "Progress", numeric: true},
				{title: "Created"},
			}, rows)
			fmt.Fprintln(cmd.OutOrStdout(), out)

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued: %d  processing: %d  completed: %d  failed: %d\n",
				stats[ledger.StatusQueued],
				stats[ledger.StatusProcessing],
				stats[ledger.StatusCompleted],
				stats[ledger.StatusFailed],
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func printJobDetail(cmd *cobra.Command, store *ledger.Store, id string) error {
	job, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", job.ID)
	fmt.Fprintf(out, "Kind:      %s\n", job.Kind)
	fmt.Fprintf(out, "Status:    %s\n", job.Status)
	fmt.Fprintf(out, "Stage:     %s\n", job.Stage)
	fmt.Fprintf(out, "Progress:  %.1f%%\n", job.Progress)
	fmt.Fprintf(out, "Created:   %s\n", job.CreatedAt.Local().Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Fprintf(out, "Started:   %s\n", job.StartedAt.Local().Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "Completed: %s\n", job.CompletedAt.Local().Format(time.RFC3339))
	}
	if job.ProcessingSeconds > 0 {
		fmt.Fprintf(out, "Runtime:   %s\n", (time.Duration(job.ProcessingSeconds * float64(time.Second))).Round(time.Second))
	}
	if job.CostCents > 0 {
		fmt.Fprintf(out, "Cost:      $%.2f\n", float64(job.CostCents)/100)
	}
	if job.ErrorCode != "" {
		fmt.Fprintf(out, "Error:     %s (%s)\n", job.ErrorMessage, job.ErrorCode)
	}

	segments, err := store.SegmentsForJob(cmd.Context(), job.ID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(segments))
	for _, seg := range segments {
		rows = append(rows, []string{
			strconv.Itoa(seg.Index),
			seg.Title,
			formatSeconds(seg.Start),
			formatSeconds(seg.End),
			fmt.Sprintf("%.2f", seg.Score),
			seg.ResultKey,
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{title: "#", numeric: true},
		{title: "Title", maxWidth: 48},
		{title: "Start", numeric: true},
		{title: "End", numeric: true},
		{title: "Score", numeric: true},
		{title: "Result"},
	}, rows))
	return nil
}

func formatSeconds(s float64) string {
	d := time.Duration(s * float64(time.Second))
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
