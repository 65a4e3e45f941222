// Package activeset computes, per VirtualMachine, the set of
// DataVolume names the VM currently depends on. The set is the union
// of the VM's dataVolumeTemplates and its live volume bindings: an
// ownership label alone cannot prove current use, because a migrated
// VM keeps owning its old disk while its spec already points at the
// replacement.
package activeset

import (
	"sort"

	"github.com/virtops/vmtree/internal/model"
)

// Key identifies one active DataVolume use: the owning VM's namespace
// and the DataVolume name.
type Key struct {
	Namespace string
	Name      string
}

// Index is the cluster-wide active-use index keyed by
// (VM namespace, DataVolume name).
type Index map[Key]bool

// ForVM returns the VM's active DataVolume names, deduplicated and
// sorted. A name appearing both as a template and as a live binding
// counts once.
func ForVM(vm *model.VirtualMachine) []string {
	seen := make(map[string]bool, len(vm.TemplateDiskNames)+len(vm.BoundDiskNames))
	var names []string
	for _, n := range vm.TemplateDiskNames {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, n := range vm.BoundDiskNames {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Build computes the active-use index for every VM in the snapshot.
func Build(snap *model.Snapshot) Index {
	idx := make(Index)
	for i := range snap.VirtualMachines {
		vm := &snap.VirtualMachines[i]
		for _, name := range ForVM(vm) {
			idx[Key{vm.Namespace, name}] = true
		}
	}
	return idx
}

// InUse reports whether a DataVolume name is actively used by any VM
// in the given namespace.
func (idx Index) InUse(namespace, name string) bool {
	return idx[Key{namespace, name}]
}
