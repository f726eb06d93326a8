package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/pipeline"
)

// showRun prints a tracked run and its failed partitions.
func showRun(c *cli.Context) error {
	runID := c.Args().First()
	if runID == "" {
		return errors.New("usage: engine status <run-id>")
	}

	cfg := config.Load()
	res := &resources{}
	defer res.Close()
	if err := res.openDB(cfg); err != nil {
		return err
	}

	repo := pipeline.NewRepository(res.db.DB)
	run, err := repo.GetRun(c.Context, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", run.ID)
	fmt.Fprintf(w, "pipeline\t%s\n", run.PipelineName)
	fmt.Fprintf(w, "as of\t%s\n", run.AsOf.Format(time.DateOnly))
	fmt.Fprintf(w, "status\t%s\n", run.Status)
	fmt.Fprintf(w, "partitions\t%d total, %d succeeded, %d failed\n", run.TotalPartitions, run.SucceededPartitions, run.FailedPartitions)
	fmt.Fprintf(w, "started\t%s\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "completed\t%s\n", run.CompletedAt.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	failed, err := repo.GetFailedPartitions(c.Context, runID)
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		return nil
	}

	fmt.Fprintln(c.App.Writer)
	w = tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TENANT\tWAREHOUSE\tATTEMPTS\tERROR")
	for _, job := range failed {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", job.TenantID, job.WarehouseID, job.Attempts, job.ErrorMessage)
	}
	return w.Flush()
}
