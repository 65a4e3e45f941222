// Package orphan classifies storage objects as active or orphaned.
// Each kind is judged independently: a Claim can be active while its
// owning DataVolume is orphaned, and that divergence is surfaced as
// is, not resolved here.
package orphan

import (
	"github.com/virtops/vmtree/internal/activeset"
	"github.com/virtops/vmtree/internal/graph"
	"github.com/virtops/vmtree/internal/model"
)

// Reason explains why an object was classified orphaned.
type Reason string

const (
	// ReasonNoOwner: the DataVolume carries no VirtualMachine owner
	// reference at all.
	ReasonNoOwner Reason = "no VirtualMachine owner reference"

	// ReasonOwnerGone: the DataVolume carries a VirtualMachine owner
	// reference but the VM no longer exists.
	ReasonOwnerGone Reason = "owning VirtualMachine no longer exists"

	// ReasonNotInVMSpec: the owning VM exists but the DataVolume is
	// absent from the VM's active set. Typical for leftover migration
	// sources after the VM spec was repatched.
	ReasonNotInVMSpec Reason = "not referenced by the owning VM spec"

	// ReasonNoDataVolumeOwner: the Claim has no DataVolume owner.
	ReasonNoDataVolumeOwner Reason = "no DataVolume owner reference"

	// ReasonTerminalPhase: the Volume is in Released or Failed phase.
	ReasonTerminalPhase Reason = "Released or Failed phase"
)

// OrphanedDataVolume is a DataVolume classified orphaned, with the
// rule that fired and the owner reference, if one exists.
type OrphanedDataVolume struct {
	DataVolume *model.DataVolume
	Reason     Reason
	Owner      *model.OwnerRef
}

// OrphanedClaim is a Claim classified orphaned.
type OrphanedClaim struct {
	Claim  *model.Claim
	Reason Reason
}

// OrphanedVolume is a Volume classified orphaned. DataLoss is set
// when the reclaim policy is Delete, meaning deleting the bound claim
// record destroys the data.
type OrphanedVolume struct {
	Volume   *model.Volume
	Reason   Reason
	DataLoss bool
}

// Result holds the three classified orphan sets for one snapshot.
type Result struct {
	DataVolumes []OrphanedDataVolume
	Claims      []OrphanedClaim
	Volumes     []OrphanedVolume
}

// Total returns the number of orphaned objects across all kinds.
func (r *Result) Total() int {
	return len(r.DataVolumes) + len(r.Claims) + len(r.Volumes)
}

// Classify applies the tiered orphan policy to every object in the
// snapshot behind idx. Classification is a pure function of the
// snapshot: two runs over the same input produce the same result.
func Classify(idx *graph.Index) *Result {
	snap := idx.Snapshot()
	res := &Result{}

	for i := range snap.DataVolumes {
		dv := &snap.DataVolumes[i]
		if od, ok := classifyDataVolume(idx, dv); ok {
			res.DataVolumes = append(res.DataVolumes, od)
		}
	}

	for i := range snap.Claims {
		c := &snap.Claims[i]
		if _, ok := c.DVOwner(); !ok {
			res.Claims = append(res.Claims, OrphanedClaim{Claim: c, Reason: ReasonNoDataVolumeOwner})
		}
	}

	for i := range snap.Volumes {
		v := &snap.Volumes[i]
		if v.Phase != model.PhaseReleased && v.Phase != model.PhaseFailed {
			continue
		}
		res.Volumes = append(res.Volumes, OrphanedVolume{
			Volume:   v,
			Reason:   ReasonTerminalPhase,
			DataLoss: v.ReclaimPolicy == "Delete",
		})
	}

	return res
}

// classifyDataVolume evaluates the three DataVolume branches in order:
// no owner reference, owner reference that no longer resolves, owner
// resolves but the DV is outside the VM's active set.
func classifyDataVolume(idx *graph.Index, dv *model.DataVolume) (OrphanedDataVolume, bool) {
	ref, ok := dv.VMOwner()
	if !ok {
		return OrphanedDataVolume{DataVolume: dv, Reason: ReasonNoOwner}, true
	}

	owner := ref
	vm, ok := idx.ResolveVMOwner(dv.Namespace, ref)
	if !ok {
		return OrphanedDataVolume{DataVolume: dv, Reason: ReasonOwnerGone, Owner: &owner}, true
	}

	for _, name := range activeset.ForVM(vm) {
		if name == dv.Name {
			return OrphanedDataVolume{}, false
		}
	}
	return OrphanedDataVolume{DataVolume: dv, Reason: ReasonNotInVMSpec, Owner: &owner}, true
}
