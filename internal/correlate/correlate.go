// Package correlate attributes orphaned DataVolumes to their probable
// originating VirtualMachine and cause. Correlation is heuristic and
// advisory: it never justifies automatic deletion.
package correlate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/virtops/vmtree/internal/activeset"
	"github.com/virtops/vmtree/internal/config"
	"github.com/virtops/vmtree/internal/graph"
	"github.com/virtops/vmtree/internal/model"
	"github.com/virtops/vmtree/internal/orphan"
)

// Confidence is a closed, totally ordered tier. Higher values mean
// stronger evidence. Adding a tier without updating the assignment in
// correlateOne is a compile-visible change, not a silently skipped
// string constant.
type Confidence int

const (
	// ConfidenceNone means no correlation record was produced.
	ConfidenceNone Confidence = iota

	// ConfidenceHigh: the owner reference resolved to a live VM whose
	// spec no longer references the DataVolume.
	ConfidenceHigh

	// ConfidenceVeryHigh: one of the owner VM's active DataVolumes was
	// cloned from this orphan.
	ConfidenceVeryHigh
)

// String renders the tier the way the report consumer prints it.
func (c Confidence) String() string {
	switch c {
	case ConfidenceVeryHigh:
		return "very-high"
	case ConfidenceHigh:
		return "high"
	default:
		return "none"
	}
}

// MigrationInfo is provenance metadata read from the migration
// workflow's labels and annotations on a DataVolume.
type MigrationInfo struct {
	SourceStorageClass string
	TargetStorageClass string
	Timestamp          string
}

// Record attributes one orphaned DataVolume to its probable owner.
type Record struct {
	DataVolume string
	Namespace  string

	VMName      string
	VMNamespace string
	VMStatus    string
	ActiveDisks []string

	Confidence  Confidence
	Reason      string
	IsMigration bool
	ReplacedBy  []string
}

// MigrationProvenance extracts migration metadata from a DataVolume's
// own labels, independent of whether correlation succeeded. ok is
// false when the DV does not carry the migration marker.
func MigrationProvenance(dv *model.DataVolume) (MigrationInfo, bool) {
	if dv.Labels[config.LabelMigration] != "true" {
		return MigrationInfo{}, false
	}
	return MigrationInfo{
		SourceStorageClass: dv.Labels[config.LabelSourceStorageClass],
		TargetStorageClass: dv.Labels[config.LabelTargetStorageClass],
		Timestamp:          dv.Annotations[config.AnnotationMigrationTimestamp],
	}, true
}

// Run correlates every orphaned DataVolume that carries a
// VirtualMachine owner reference. Orphans whose owner reference does
// not resolve produce no record: they are reported as
// orphaned-with-no-owner by the consumer.
func Run(idx *graph.Index, orphans []orphan.OrphanedDataVolume) []Record {
	var records []Record
	for _, od := range orphans {
		if od.Owner == nil {
			continue
		}
		if rec, ok := correlateOne(idx, od); ok {
			records = append(records, rec)
		}
	}
	return records
}

func correlateOne(idx *graph.Index, od orphan.OrphanedDataVolume) (Record, bool) {
	dv := od.DataVolume

	vm, ok := idx.ResolveVMOwner(dv.Namespace, *od.Owner)
	if !ok {
		return Record{}, false
	}

	active := activeset.ForVM(vm)
	rec := Record{
		DataVolume:  dv.Name,
		Namespace:   dv.Namespace,
		VMName:      vm.Name,
		VMNamespace: vm.Namespace,
		VMStatus:    vm.Status,
		ActiveDisks: active,
	}

	// Ambiguity is surfaced, not collapsed: every active disk cloned
	// from this orphan is reported.
	replacedBy := cloneMatches(idx, dv, active)
	if len(replacedBy) > 0 {
		rec.Confidence = ConfidenceVeryHigh
		rec.Reason = fmt.Sprintf("migration source for %s", strings.Join(replacedBy, ", "))
		rec.IsMigration = true
		rec.ReplacedBy = replacedBy
		return rec, true
	}

	rec.Confidence = ConfidenceHigh
	rec.Reason = "has owner reference to VM but not in VM spec"
	return rec, true
}

// cloneMatches returns the names of the VM's active DataVolumes whose
// clone provenance points back at the orphan, sorted for stable output.
func cloneMatches(idx *graph.Index, dv *model.DataVolume, active []string) []string {
	activeNames := make(map[string]bool, len(active))
	for _, n := range active {
		activeNames[n] = true
	}

	var matches []string
	for _, clone := range idx.ClonedFrom(dv.Namespace, dv.Name) {
		if clone.Namespace == dv.Namespace && activeNames[clone.Name] {
			matches = append(matches, clone.Name)
		}
	}
	sort.Strings(matches)
	return matches
}
