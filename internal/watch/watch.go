// Package watch polls migration-labeled DataVolumes at a fixed
// interval and renders their progress. Each cycle fetches a whole new
// snapshot and replaces the previous one; there is no incremental
// update path.
package watch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/virtops/vmtree/internal/config"
	"github.com/virtops/vmtree/internal/metrics"
	"github.com/virtops/vmtree/internal/model"
	"github.com/virtops/vmtree/internal/snapshot"
)

// Stats buckets the migration DataVolumes by phase the way the
// progress report groups them.
type Stats struct {
	Total      int
	Succeeded  int
	Bound      int
	InProgress int
	Pending    int
	Failed     int
	Unknown    int
}

// Completed counts DataVolumes that reached a usable phase.
func (s Stats) Completed() int { return s.Succeeded + s.Bound }

// Done reports whether every DataVolume reached a terminal phase
// (Succeeded, Bound or Failed). An empty set is not done.
func (s Stats) Done() bool {
	return s.Total > 0 && s.Completed()+s.Failed == s.Total
}

// CompletionPercent returns the completed share in percent.
func (s Stats) CompletionPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed()) / float64(s.Total) * 100
}

// Filter selects the DataVolumes carrying the migration marker label,
// optionally restricted to a target storage class.
func Filter(snap *model.Snapshot, targetSC string) []*model.DataVolume {
	var dvs []*model.DataVolume
	for i := range snap.DataVolumes {
		dv := &snap.DataVolumes[i]
		if dv.Labels[config.LabelMigration] != "true" {
			continue
		}
		if targetSC != "" && dv.StorageClassName != targetSC {
			continue
		}
		dvs = append(dvs, dv)
	}
	return dvs
}

// Collect buckets the given DataVolumes by phase.
func Collect(dvs []*model.DataVolume) Stats {
	s := Stats{Total: len(dvs)}
	for _, dv := range dvs {
		switch dv.Phase {
		case model.PhaseSucceeded:
			s.Succeeded++
		case model.PhaseBound:
			s.Bound++
		case model.PhaseImportInProgress, model.PhaseCloneInProgress, model.PhaseRunning:
			s.InProgress++
		case model.PhasePending, model.PhaseWaitForFirstConsumer:
			s.Pending++
		case model.PhaseFailed:
			s.Failed++
		default:
			s.Unknown++
		}
	}
	return s
}

// Watcher drives the poll loop.
type Watcher struct {
	Fetcher   *snapshot.Fetcher
	Namespace string
	TargetSC  string
	Interval  time.Duration
	Out       io.Writer
	Gauges    *metrics.Gauges

	// now is swappable for tests.
	now func() time.Time
}

// NewWatcher creates a Watcher polling at the given interval.
func NewWatcher(f *snapshot.Fetcher, namespace, targetSC string, interval time.Duration, out io.Writer) *Watcher {
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}
	return &Watcher{
		Fetcher:   f,
		Namespace: namespace,
		TargetSC:  targetSC,
		Interval:  interval,
		Out:       out,
		now:       time.Now,
	}
}

// Run polls until every migration DataVolume is terminal or the
// context is cancelled. Fetch errors are logged and the loop keeps
// polling; a transient apiserver hiccup should not kill a watch.
func (w *Watcher) Run(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("watch")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	first := true
	for {
		snap, err := w.Fetcher.Fetch(ctx, w.Namespace)
		if err != nil {
			logger.Error(err, "fetching snapshot")
		} else {
			if !first {
				fmt.Fprint(w.Out, "\033[2J\033[H")
			}
			first = false

			dvs := Filter(snap, w.TargetSC)
			stats := Collect(dvs)
			w.render(dvs, stats)
			if w.Gauges != nil {
				w.publish(stats)
			}
			if stats.Done() {
				fmt.Fprintln(w.Out, "All migrations completed or failed.")
				fmt.Fprintln(w.Out)
				fmt.Fprintln(w.Out, "Next steps:")
				fmt.Fprintln(w.Out, "  1. Verify VMs are working: kubectl get vm -A")
				fmt.Fprintln(w.Out, "  2. Find leftover resources: vmtree orphans")
				return nil
			}
			fmt.Fprintf(w.Out, "Refreshing in %s... (Ctrl+C to stop)\n", w.Interval)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) publish(s Stats) {
	w.Gauges.MigrationsTotal.Set(float64(s.Total))
	w.Gauges.MigrationsCompleted.Set(float64(s.Completed()))
	w.Gauges.MigrationsInProgress.Set(float64(s.InProgress))
	w.Gauges.MigrationsPending.Set(float64(s.Pending))
	w.Gauges.MigrationsFailed.Set(float64(s.Failed))
}

func (w *Watcher) render(dvs []*model.DataVolume, stats Stats) {
	fmt.Fprintln(w.Out, "STORAGE MIGRATION PROGRESS")
	if w.Namespace != "" {
		fmt.Fprintf(w.Out, "Namespace: %s\n", w.Namespace)
	} else {
		fmt.Fprintln(w.Out, "All namespaces")
	}
	fmt.Fprintf(w.Out, "Updated: %s\n\n", w.now().Format("2006-01-02 15:04:05"))

	if len(dvs) == 0 {
		fmt.Fprintln(w.Out, "No migration DataVolumes found.")
		fmt.Fprintln(w.Out)
		fmt.Fprintf(w.Out, "Migration DataVolumes carry the label %s=true.\n", config.LabelMigration)
		return
	}

	fmt.Fprintf(w.Out, "Total: %d  Completed: %d (%.1f%%)  In progress: %d  Pending: %d  Failed: %d",
		stats.Total, stats.Completed(), stats.CompletionPercent(), stats.InProgress, stats.Pending, stats.Failed)
	if stats.Unknown > 0 {
		fmt.Fprintf(w.Out, "  Unknown: %d", stats.Unknown)
	}
	fmt.Fprintln(w.Out)
	fmt.Fprintf(w.Out, "Overall: %s\n\n", ProgressBar(stats.CompletionPercent(), 40))

	tw := table.NewWriter()
	tw.SetOutputMirror(w.Out)
	tw.AppendHeader(table.Row{"Namespace", "Name", "Phase", "Progress", "Age"})
	for _, dv := range dvs {
		tw.AppendRow(table.Row{
			dv.Namespace, dv.Name, dv.Phase, progressCell(dv), Age(dv.CreatedAt, w.now()),
		})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
	fmt.Fprintln(w.Out)

	w.renderErrors(dvs)
}

// renderErrors lists the failure conditions of every Failed
// DataVolume so the operator sees why an import or clone died without
// a kubectl describe round trip.
func (w *Watcher) renderErrors(dvs []*model.DataVolume) {
	var failed []*model.DataVolume
	for _, dv := range dvs {
		if dv.Phase == model.PhaseFailed {
			failed = append(failed, dv)
		}
	}
	if len(failed) == 0 {
		return
	}

	fmt.Fprintln(w.Out, "ERRORS:")
	for _, dv := range failed {
		fmt.Fprintf(w.Out, "  %s/%s\n", dv.Namespace, dv.Name)
		conds := dv.FailureConditions()
		if len(conds) == 0 {
			fmt.Fprintln(w.Out, "    (no failure conditions reported)")
			continue
		}
		for _, c := range conds {
			reason := c.Reason
			if reason == "" {
				reason = "Unknown"
			}
			message := c.Message
			if message == "" {
				message = "No message"
			}
			fmt.Fprintf(w.Out, "    Reason: %s\n", reason)
			fmt.Fprintf(w.Out, "    Message: %s\n", message)
		}
	}
	fmt.Fprintln(w.Out)
}

func progressCell(dv *model.DataVolume) string {
	switch dv.Phase {
	case model.PhaseSucceeded, model.PhaseBound:
		return ProgressBar(100, 15)
	case model.PhaseFailed:
		return strings.Repeat("x", 15) + " failed"
	case model.PhaseImportInProgress, model.PhaseCloneInProgress:
		if pct, ok := parsePercent(dv.Progress); ok {
			return ProgressBar(pct, 15)
		}
	}
	if dv.Progress != "" {
		return dv.Progress
	}
	return "-"
}

// ProgressBar renders a fixed-width textual bar for a percentage.
func ProgressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return fmt.Sprintf("[%s%s] %.1f%%",
		strings.Repeat("=", filled), strings.Repeat(" ", width-filled), percent)
}

func parsePercent(progress string) (float64, bool) {
	var pct float64
	if _, err := fmt.Sscanf(strings.TrimSuffix(progress, "%"), "%f", &pct); err != nil {
		return 0, false
	}
	return pct, true
}

// Age renders how long ago an RFC3339 timestamp was, in the largest
// fitting unit.
func Age(createdAt string, now time.Time) string {
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return "unknown"
	}
	d := now.Sub(created)
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
