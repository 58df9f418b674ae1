package seeder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"afterseed/pkg/seed"
)

// PrintReport writes a human summary of a run.
func PrintReport(w io.Writer, report *seed.Report) {
	if report == nil {
		return
	}
	switch report.Status {
	case seed.StatusNothingToDo:
		fmt.Fprintln(w, "Nothing to seed.")
		return
	case seed.StatusAborted:
		fmt.Fprintf(w, "Aborted: %d seeder(s) rejected, nothing applied.\n", len(report.Problems))
		for _, p := range report.Problems {
			fmt.Fprintf(w, "  - %v\n", p)
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SEEDER\tOUTCOME\tRECORDS\tDURATION\n")
	for _, res := range report.Results {
		duration := "-"
		if res.Outcome == seed.OutcomeApplied {
			duration = res.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Seeder, res.Outcome, res.Records, duration)
	}
	_ = tw.Flush()

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(w, "  ! %v\n", res.Err)
		}
	}
	fmt.Fprintf(w, "Batch %d: %d applied, %d skipped, %d failed.\n",
		report.Batch,
		report.Count(seed.OutcomeApplied),
		report.Count(seed.OutcomeSkipped),
		report.Count(seed.OutcomeFailed),
	)
	if report.Count(seed.OutcomeSkipped) == len(report.Results) {
		fmt.Fprintf(w, "No after seeders available for tag %s.\n", seed.TagLabel(report.Tag))
	}
}

// PrintStatus writes one line per seeder.
func PrintStatus(w io.Writer, rows []seed.StatusRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SEEDER\tBATCH\tTAG\tAPPLIED AT\n")
	for _, row := range rows {
		if !row.Applied {
			fmt.Fprintf(tw, "%s\t-\t-\tpending\n", row.Seeder)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", row.Seeder, row.Batch, seed.TagLabel(row.Tag), row.AppliedAt.UTC().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func decodeEvent(data []byte) (seed.AppliedEvent, error) {
	var evt seed.AppliedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return seed.AppliedEvent{}, err
	}
	if evt.Seeder == "" {
		return seed.AppliedEvent{}, errors.New("seeder missing from applied event")
	}
	return evt, nil
}

// FormatEvent renders an applied-seeder event on one line.
func FormatEvent(evt seed.AppliedEvent) string {
	return fmt.Sprintf("%s batch=%d tag=%s table=%s records=%d run=%s",
		evt.AppliedAt.UTC().Format(time.DateTime), evt.Batch, seed.TagLabel(evt.Tag), evt.Table, evt.Records, evt.RunID)
}
