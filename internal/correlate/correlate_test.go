package correlate

import (
	"reflect"
	"testing"

	"k8s.io/apimachinery/pkg/types"

	"github.com/virtops/vmtree/internal/graph"
	"github.com/virtops/vmtree/internal/model"
	"github.com/virtops/vmtree/internal/orphan"
)

func vmOwner(name, uid string) model.OwnerRef {
	return model.OwnerRef{Kind: model.KindVirtualMachine, Name: name, UID: types.UID(uid)}
}

func pipeline(snap *model.Snapshot) ([]Record, *orphan.Result) {
	idx := graph.Build(snap)
	res := orphan.Classify(idx)
	return Run(idx, res.DataVolumes), res
}

// Owner resolves, no clone provenance, so high confidence.
func TestRun_OwnerWithoutProvenance(t *testing.T) {
	records, _ := pipeline(&model.Snapshot{
		VirtualMachines: []model.VirtualMachine{
			{Name: "vm1", Namespace: "default", UID: "vm-uid-1", Status: "Running", BoundDiskNames: []string{"disk-new"}},
		},
		DataVolumes: []model.DataVolume{
			{Name: "disk-old", Namespace: "default", Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")}},
			{Name: "disk-new", Namespace: "default", Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")}},
		},
	})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Confidence != ConfidenceHigh {
		t.Errorf("expected confidence high, got %s", rec.Confidence)
	}
	if rec.Reason != "has owner reference to VM but not in VM spec" {
		t.Errorf("unexpected reason %q", rec.Reason)
	}
	if rec.IsMigration || len(rec.ReplacedBy) != 0 {
		t.Errorf("no provenance match expected: %+v", rec)
	}
	if rec.VMName != "vm1" || rec.VMStatus != "Running" {
		t.Errorf("unexpected VM attribution: %s (%s)", rec.VMName, rec.VMStatus)
	}
	if !reflect.DeepEqual(rec.ActiveDisks, []string{"disk-new"}) {
		t.Errorf("unexpected active disks: %v", rec.ActiveDisks)
	}
}

// An active disk was cloned from the orphan, so very-high.
func TestRun_CloneProvenanceMatch(t *testing.T) {
	records, _ := pipeline(&model.Snapshot{
		VirtualMachines: []model.VirtualMachine{
			{Name: "vm1", Namespace: "default", UID: "vm-uid-1", Status: "Running", BoundDiskNames: []string{"disk-new"}},
		},
		DataVolumes: []model.DataVolume{
			{Name: "disk-old", Namespace: "default", Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")}},
			{
				Name: "disk-new", Namespace: "default",
				Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")},
				Source: &model.CloneSource{Namespace: "default", Name: "disk-old"},
			},
		},
	})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Confidence != ConfidenceVeryHigh {
		t.Errorf("expected confidence very-high, got %s", rec.Confidence)
	}
	if !rec.IsMigration {
		t.Error("expected is_migration")
	}
	if !reflect.DeepEqual(rec.ReplacedBy, []string{"disk-new"}) {
		t.Errorf("expected replaced_by [disk-new], got %v", rec.ReplacedBy)
	}
	if rec.Reason != "migration source for disk-new" {
		t.Errorf("unexpected reason %q", rec.Reason)
	}
}

// No owner reference means no correlation record at all.
func TestRun_NoOwnerNoRecord(t *testing.T) {
	records, res := pipeline(&model.Snapshot{
		DataVolumes: []model.DataVolume{
			{Name: "orphan1", Namespace: "default"},
		},
	})

	if len(res.DataVolumes) != 1 {
		t.Fatalf("expected orphan1 classified orphaned")
	}
	if len(records) != 0 {
		t.Errorf("expected no correlation records, got %+v", records)
	}
}

// A dangling owner reference produces no record either; the orphan is
// reported as owner-gone by the consumer.
func TestRun_DanglingOwnerNoRecord(t *testing.T) {
	records, res := pipeline(&model.Snapshot{
		DataVolumes: []model.DataVolume{
			{Name: "disk-old", Namespace: "default", Owners: []model.OwnerRef{vmOwner("vm-deleted", "vm-uid-gone")}},
		},
	})

	if len(res.DataVolumes) != 1 || res.DataVolumes[0].Reason != orphan.ReasonOwnerGone {
		t.Fatalf("expected owner-gone orphan, got %+v", res.DataVolumes)
	}
	if len(records) != 0 {
		t.Errorf("expected no correlation records, got %+v", records)
	}
}

// All clone matches are reported, not collapsed to one.
func TestRun_MultipleCloneMatches(t *testing.T) {
	records, _ := pipeline(&model.Snapshot{
		VirtualMachines: []model.VirtualMachine{
			{Name: "vm1", Namespace: "default", UID: "vm-uid-1", BoundDiskNames: []string{"disk-b", "disk-a"}},
		},
		DataVolumes: []model.DataVolume{
			{Name: "disk-old", Namespace: "default", Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")}},
			{
				Name: "disk-a", Namespace: "default",
				Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")},
				Source: &model.CloneSource{Namespace: "default", Name: "disk-old"},
			},
			{
				Name: "disk-b", Namespace: "default",
				Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")},
				Source: &model.CloneSource{Namespace: "default", Name: "disk-old"},
			},
		},
	})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0].ReplacedBy, []string{"disk-a", "disk-b"}) {
		t.Errorf("expected both matches sorted, got %v", records[0].ReplacedBy)
	}
}

// A clone outside the owner VM's active set is not a replacement.
func TestRun_CloneOutsideActiveSetIgnored(t *testing.T) {
	records, _ := pipeline(&model.Snapshot{
		VirtualMachines: []model.VirtualMachine{
			{Name: "vm1", Namespace: "default", UID: "vm-uid-1", BoundDiskNames: []string{"disk-current"}},
		},
		DataVolumes: []model.DataVolume{
			{Name: "disk-old", Namespace: "default", Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")}},
			{Name: "disk-current", Namespace: "default", Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")}},
			{
				// Cloned from disk-old but owned by nobody and unused.
				Name: "disk-stray", Namespace: "default",
				Source: &model.CloneSource{Namespace: "default", Name: "disk-old"},
			},
		},
	})

	for _, rec := range records {
		if rec.DataVolume != "disk-old" {
			continue
		}
		if rec.Confidence != ConfidenceHigh {
			t.Errorf("expected high confidence, got %s", rec.Confidence)
		}
		if len(rec.ReplacedBy) != 0 {
			t.Errorf("stray clone must not count as replacement: %v", rec.ReplacedBy)
		}
	}
}

func TestConfidenceOrdering(t *testing.T) {
	if !(ConfidenceVeryHigh > ConfidenceHigh && ConfidenceHigh > ConfidenceNone) {
		t.Error("confidence tiers must be totally ordered")
	}
	if ConfidenceVeryHigh.String() != "very-high" || ConfidenceHigh.String() != "high" || ConfidenceNone.String() != "none" {
		t.Errorf("unexpected tier names: %s %s %s", ConfidenceVeryHigh, ConfidenceHigh, ConfidenceNone)
	}
}

func TestMigrationProvenance(t *testing.T) {
	dv := &model.DataVolume{
		Labels: map[string]string{
			"storage-migration": "true",
			"source-sc":         "standard",
			"target-sc":         "standard-fast",
		},
		Annotations: map[string]string{
			"migration-timestamp": "2026-08-30T12:00:00Z",
		},
	}

	info, ok := MigrationProvenance(dv)
	if !ok {
		t.Fatal("expected provenance")
	}
	if info.SourceStorageClass != "standard" || info.TargetStorageClass != "standard-fast" {
		t.Errorf("unexpected storage classes: %+v", info)
	}
	if info.Timestamp != "2026-08-30T12:00:00Z" {
		t.Errorf("unexpected timestamp %q", info.Timestamp)
	}
}

func TestMigrationProvenance_NoMarker(t *testing.T) {
	dv := &model.DataVolume{
		Labels: map[string]string{"source-sc": "standard"},
	}
	if _, ok := MigrationProvenance(dv); ok {
		t.Error("expected no provenance without the marker label")
	}
}
