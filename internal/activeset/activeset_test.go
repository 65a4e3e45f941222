package activeset

import (
	"reflect"
	"testing"

	"github.com/virtops/vmtree/internal/model"
)

func TestForVM_UnionAndDedup(t *testing.T) {
	vm := &model.VirtualMachine{
		Namespace:         "default",
		Name:              "vm1",
		TemplateDiskNames: []string{"disk-a", "disk-b"},
		BoundDiskNames:    []string{"disk-b", "disk-c"},
	}

	got := ForVM(vm)
	want := []string{"disk-a", "disk-b", "disk-c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestForVM_Empty(t *testing.T) {
	if got := ForVM(&model.VirtualMachine{}); len(got) != 0 {
		t.Errorf("expected empty set, got %v", got)
	}
}

func TestForVM_TemplateLagsBehindBinding(t *testing.T) {
	// After a spec patch, the template may still name the old disk
	// while the live binding points at the new one. Both count as
	// active.
	vm := &model.VirtualMachine{
		TemplateDiskNames: []string{"disk-old"},
		BoundDiskNames:    []string{"disk-new"},
	}
	got := ForVM(vm)
	want := []string{"disk-new", "disk-old"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBuild_InUse(t *testing.T) {
	snap := &model.Snapshot{
		VirtualMachines: []model.VirtualMachine{
			{Namespace: "default", Name: "vm1", BoundDiskNames: []string{"disk-a"}},
			{Namespace: "other", Name: "vm2", TemplateDiskNames: []string{"disk-b"}},
		},
	}

	idx := Build(snap)
	if !idx.InUse("default", "disk-a") {
		t.Error("expected disk-a in use in default")
	}
	if !idx.InUse("other", "disk-b") {
		t.Error("expected disk-b in use in other")
	}
	if idx.InUse("default", "disk-b") {
		t.Error("active use must not leak across namespaces")
	}
	if idx.InUse("default", "disk-gone") {
		t.Error("expected disk-gone not in use")
	}
}
