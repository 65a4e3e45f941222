// Package graph builds the in-memory index over one snapshot:
// (namespace, name) and UID lookups per kind, plus a reverse index
// from owner UID to owned DataVolumes. Indices are built once and shared
// by the classifier and correlator instead of re-scanning the flat
// lists per question.
//
// Referential integrity is never assumed. An owner reference naming an
// object absent from the snapshot resolves to (zero, false); that is a
// normal outcome, not an error.
package graph

import (
	"k8s.io/apimachinery/pkg/types"

	"github.com/virtops/vmtree/internal/model"
)

// Key identifies a namespaced object. Cluster-scoped Volumes use an
// empty Namespace.
type Key struct {
	Namespace string
	Name      string
}

// Index is the ownership/reference graph over a single snapshot. It
// is read-only after Build and safe for concurrent readers.
type Index struct {
	snapshot *model.Snapshot

	vmsByKey map[Key]*model.VirtualMachine
	vmsByUID map[types.UID]*model.VirtualMachine

	dvsByKey map[Key]*model.DataVolume
	dvsByUID map[types.UID]*model.DataVolume

	claimsByKey   map[Key]*model.Claim
	volumesByName map[string]*model.Volume

	// ownedDVs maps an owner UID to the DataVolumes that carry an
	// owner reference with that UID.
	ownedDVs map[types.UID][]*model.DataVolume

	// cloneTargets maps the (namespace, name) of a clone source PVC to
	// the DataVolumes cloned from it.
	cloneTargets map[Key][]*model.DataVolume
}

// Build indexes a snapshot. Duplicate (namespace, name) pairs within a
// kind are impossible in apiserver output and are not re-validated;
// the last occurrence wins.
func Build(snap *model.Snapshot) *Index {
	idx := &Index{
		snapshot:      snap,
		vmsByKey:      make(map[Key]*model.VirtualMachine, len(snap.VirtualMachines)),
		vmsByUID:      make(map[types.UID]*model.VirtualMachine, len(snap.VirtualMachines)),
		dvsByKey:      make(map[Key]*model.DataVolume, len(snap.DataVolumes)),
		dvsByUID:      make(map[types.UID]*model.DataVolume, len(snap.DataVolumes)),
		claimsByKey:   make(map[Key]*model.Claim, len(snap.Claims)),
		volumesByName: make(map[string]*model.Volume, len(snap.Volumes)),
		ownedDVs:      make(map[types.UID][]*model.DataVolume),
		cloneTargets:  make(map[Key][]*model.DataVolume),
	}

	for i := range snap.VirtualMachines {
		vm := &snap.VirtualMachines[i]
		idx.vmsByKey[Key{vm.Namespace, vm.Name}] = vm
		if vm.UID != "" {
			idx.vmsByUID[vm.UID] = vm
		}
	}

	for i := range snap.DataVolumes {
		dv := &snap.DataVolumes[i]
		idx.dvsByKey[Key{dv.Namespace, dv.Name}] = dv
		if dv.UID != "" {
			idx.dvsByUID[dv.UID] = dv
		}
		for _, ref := range dv.Owners {
			if ref.UID != "" {
				idx.ownedDVs[ref.UID] = append(idx.ownedDVs[ref.UID], dv)
			}
		}
		if dv.Source != nil {
			k := Key{dv.Source.Namespace, dv.Source.Name}
			idx.cloneTargets[k] = append(idx.cloneTargets[k], dv)
		}
	}

	for i := range snap.Claims {
		c := &snap.Claims[i]
		idx.claimsByKey[Key{c.Namespace, c.Name}] = c
	}

	for i := range snap.Volumes {
		v := &snap.Volumes[i]
		idx.volumesByName[v.Name] = v
	}

	return idx
}

// Snapshot returns the snapshot the index was built from.
func (idx *Index) Snapshot() *model.Snapshot { return idx.snapshot }

// VM looks up a VirtualMachine by namespace and name.
func (idx *Index) VM(namespace, name string) (*model.VirtualMachine, bool) {
	vm, ok := idx.vmsByKey[Key{namespace, name}]
	return vm, ok
}

// DataVolume looks up a DataVolume by namespace and name.
func (idx *Index) DataVolume(namespace, name string) (*model.DataVolume, bool) {
	dv, ok := idx.dvsByKey[Key{namespace, name}]
	return dv, ok
}

// Claim looks up a Claim by namespace and name.
func (idx *Index) Claim(namespace, name string) (*model.Claim, bool) {
	c, ok := idx.claimsByKey[Key{namespace, name}]
	return c, ok
}

// Volume looks up a cluster-scoped Volume by name.
func (idx *Index) Volume(name string) (*model.Volume, bool) {
	v, ok := idx.volumesByName[name]
	return v, ok
}

// ResolveVMOwner resolves a VirtualMachine owner reference against the
// snapshot. Matching is by UID when the reference carries one, with a
// (namespace, name) fallback for references written without a UID.
// The reference may dangle; ok reports whether the owner still exists.
func (idx *Index) ResolveVMOwner(namespace string, ref model.OwnerRef) (*model.VirtualMachine, bool) {
	if ref.Kind != model.KindVirtualMachine {
		return nil, false
	}
	if ref.UID != "" {
		if vm, ok := idx.vmsByUID[ref.UID]; ok {
			return vm, true
		}
	}
	vm, ok := idx.vmsByKey[Key{namespace, ref.Name}]
	return vm, ok
}

// OwnedDataVolumes returns the DataVolumes carrying an owner reference
// with the given UID.
func (idx *Index) OwnedDataVolumes(uid types.UID) []*model.DataVolume {
	return idx.ownedDVs[uid]
}

// ClonedFrom returns the DataVolumes whose clone provenance names the
// given (namespace, name) as source.
func (idx *Index) ClonedFrom(namespace, name string) []*model.DataVolume {
	return idx.cloneTargets[Key{namespace, name}]
}
