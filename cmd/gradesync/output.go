package main

import (
	"io"
	"text/tabwriter"
	"time"

	"github.com/target/gradesync/internal/domain/model"
	"github.com/target/gradesync/internal/service"
)

const maxListedMismatches = 10

func printReport(w io.Writer, rep *service.RunReport) {
	writef(w, "\n%s\n", rep.Message)
	writef(w, "  run:      %s\n", rep.RunID)
	writef(w, "  outcome:  %s\n", rep.Outcome)
	if rep.Strategy != "" {
		writef(w, "  strategy: %s\n", rep.Strategy)
	}
	if rep.Resumed {
		writef(w, "  resumed:  yes\n")
	}
	for _, r := range rep.Retries {
		writef(w, "  retried:  %s (%d attempts)\n", r.UserID, r.Attempts)
	}
	for _, f := range rep.Failures {
		writef(w, "  failed:   %s (%.2f): %s\n", f.UserID, f.Average, f.Error)
	}
	if rep.ExportURL != "" {
		writef(w, "  summary:  %s\n", rep.ExportURL)
	}
	if v := rep.Verification; v != nil && !v.Matched {
		for i, m := range v.Mismatches {
			if i == maxListedMismatches {
				writef(w, "  ... and %d more not yet confirmed\n", len(v.Mismatches)-i)
				break
			}
			writef(w, "  pending:  %s expected %.2f (%s)\n", m.UserID, m.Expected, m.Reason)
		}
	}
}

func printStatus(w io.Writer, st *service.RunStatus, now time.Time) {
	writef(w, "Course %s\n", st.CourseID)
	switch s := st.State; {
	case s == nil:
		writef(w, "  no run in progress\n")
	default:
		writef(w, "  phase:     %s\n", s.Phase)
		writef(w, "  started:   %s (%s ago)\n", s.StartTime.Format(time.RFC3339), now.Sub(s.StartTime).Truncate(time.Second))
		if s.Strategy != "" {
			writef(w, "  strategy:  %s\n", s.Strategy)
		}
		if s.JobID != "" {
			writef(w, "  bulk job:  %s\n", s.JobID)
		}
		if s.VerificationPending {
			writef(w, "  verifying: %d records against outcome %s\n", len(s.ExpectedDeltas), s.TargetID)
		}
	}
	if st.LeaseHolder != "" {
		writef(w, "  held by:   %s\n", st.LeaseHolder)
	}
	if last := st.LastSuccess; last != nil {
		writef(w, "  last success: %s (%d updated in %s)\n",
			last.FinishedAt.Format(time.RFC3339), last.Updated, last.Duration().Truncate(time.Second))
	}
}

func printHistory(w io.Writer, records []*model.RunRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writef(tw, "FINISHED\tOUTCOME\tSTRATEGY\tUPDATED\tFAILED\tDURATION\tMESSAGE\n")
	for _, r := range records {
		writef(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.FinishedAt.Format(time.RFC3339),
			r.Outcome,
			r.Strategy,
			r.Updated,
			r.Failed,
			r.Duration().Truncate(time.Second),
			r.Message,
		)
	}
	return tw.Flush()
}
