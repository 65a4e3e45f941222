package report

import (
	"reflect"
	"testing"

	"k8s.io/apimachinery/pkg/types"

	"github.com/virtops/vmtree/internal/correlate"
	"github.com/virtops/vmtree/internal/graph"
	"github.com/virtops/vmtree/internal/model"
)

func vmOwner(name, uid string) model.OwnerRef {
	return model.OwnerRef{Kind: model.KindVirtualMachine, Name: name, UID: types.UID(uid)}
}

func migrationSnapshot() *model.Snapshot {
	return &model.Snapshot{
		VirtualMachines: []model.VirtualMachine{
			{Name: "vm1", Namespace: "default", UID: "vm-uid-1", Status: "Running", BoundDiskNames: []string{"disk-new"}, TemplateDiskNames: []string{"disk-new"}},
		},
		DataVolumes: []model.DataVolume{
			{
				Name: "disk-old", Namespace: "default", UID: "dv-uid-1",
				Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")},
				Labels: map[string]string{
					"storage-migration": "true",
					"source-sc":         "standard",
					"target-sc":         "standard-fast",
				},
				Annotations: map[string]string{"migration-timestamp": "2026-08-30T12:00:00Z"},
			},
			{
				Name: "disk-new", Namespace: "default", UID: "dv-uid-2",
				Owners: []model.OwnerRef{vmOwner("vm1", "vm-uid-1")},
				Source: &model.CloneSource{Namespace: "default", Name: "disk-old"},
			},
		},
		Claims: []model.Claim{
			{Name: "disk-new", Namespace: "default", Phase: model.PhaseBound, VolumeName: "pv-new", Owners: []model.OwnerRef{{Kind: model.KindDataVolume, Name: "disk-new", UID: "dv-uid-2"}}},
			{Name: "disk-old", Namespace: "default", Phase: model.PhaseBound, Owners: []model.OwnerRef{{Kind: model.KindDataVolume, Name: "disk-old", UID: "dv-uid-1"}}},
		},
		Volumes: []model.Volume{
			{Name: "pv-new", Phase: model.PhaseBound, ReclaimPolicy: "Delete"},
			{Name: "pv-released", Phase: model.PhaseReleased, ReclaimPolicy: "Delete"},
		},
	}
}

func TestBuild_JoinsPipeline(t *testing.T) {
	rep := Build(graph.Build(migrationSnapshot()))

	if !rep.Active.InUse("default", "disk-new") {
		t.Error("expected disk-new in the active index")
	}
	if rep.Active.InUse("default", "disk-old") {
		t.Error("disk-old must not be active")
	}

	if len(rep.Orphans.DataVolumes) != 1 || rep.Orphans.DataVolumes[0].DataVolume.Name != "disk-old" {
		t.Fatalf("expected disk-old orphaned, got %+v", rep.Orphans.DataVolumes)
	}
	if len(rep.Orphans.Volumes) != 1 || rep.Orphans.Volumes[0].Volume.Name != "pv-released" {
		t.Errorf("expected pv-released orphaned, got %+v", rep.Orphans.Volumes)
	}
	if len(rep.Orphans.Claims) != 0 {
		t.Errorf("expected no orphaned claims, got %+v", rep.Orphans.Claims)
	}

	rec, ok := rep.Correlation("default", "disk-old")
	if !ok {
		t.Fatal("expected correlation record for disk-old")
	}
	if rec.Confidence != correlate.ConfidenceVeryHigh || !reflect.DeepEqual(rec.ReplacedBy, []string{"disk-new"}) {
		t.Errorf("unexpected correlation: %+v", rec)
	}

	info, ok := rep.MigrationInfo("default", "disk-old")
	if !ok {
		t.Fatal("expected migration provenance for disk-old")
	}
	if info.SourceStorageClass != "standard" || info.TargetStorageClass != "standard-fast" {
		t.Errorf("unexpected provenance: %+v", info)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	idx := graph.Build(migrationSnapshot())

	first := Build(idx)
	second := Build(idx)
	if !reflect.DeepEqual(first.Correlations, second.Correlations) {
		t.Error("correlations differ between runs on the identical snapshot")
	}
	if first.Orphans.Total() != second.Orphans.Total() {
		t.Error("orphan totals differ between runs on the identical snapshot")
	}
}

func TestBuildVMTree(t *testing.T) {
	idx := graph.Build(migrationSnapshot())

	tree, ok := BuildVMTree(idx, "default", "vm1")
	if !ok {
		t.Fatal("expected vm1 found")
	}
	if len(tree.Disks) != 2 {
		t.Fatalf("expected 2 disks, got %d", len(tree.Disks))
	}

	// Sorted by name: disk-new before disk-old.
	if tree.Disks[0].DataVolume.Name != "disk-new" {
		t.Errorf("expected disk-new first, got %s", tree.Disks[0].DataVolume.Name)
	}
	if tree.Disks[0].Claim == nil || tree.Disks[0].Volume == nil || tree.Disks[0].Volume.Name != "pv-new" {
		t.Errorf("disk-new chain incomplete: %+v", tree.Disks[0])
	}

	// disk-old's claim has no bound volume.
	if tree.Disks[1].Claim == nil {
		t.Error("expected claim for disk-old")
	}
	if tree.Disks[1].Volume != nil {
		t.Errorf("expected no volume for disk-old, got %+v", tree.Disks[1].Volume)
	}
}

func TestBuildVMTree_NotFound(t *testing.T) {
	idx := graph.Build(&model.Snapshot{})
	if _, ok := BuildVMTree(idx, "default", "missing"); ok {
		t.Error("expected lookup miss")
	}
}
