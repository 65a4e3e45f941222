// Package report assembles the analysis output for one snapshot: the
// active-use index, the three classified orphan sets with their
// correlation records and migration provenance, and per-VM storage
// trees. Renderers consume this and nothing else.
package report

import (
	"sort"

	"github.com/virtops/vmtree/internal/activeset"
	"github.com/virtops/vmtree/internal/correlate"
	"github.com/virtops/vmtree/internal/graph"
	"github.com/virtops/vmtree/internal/model"
	"github.com/virtops/vmtree/internal/orphan"
)

// Report is the per-invocation analysis result. It is derived wholly
// from one snapshot and discarded after rendering.
type Report struct {
	Active  activeset.Index
	Orphans *orphan.Result

	// Correlations and Provenance are keyed by the orphaned
	// DataVolume's (namespace, name).
	Correlations map[graph.Key]correlate.Record
	Provenance   map[graph.Key]correlate.MigrationInfo
}

// Build runs the full pipeline over an already-built index:
// active-use index, orphan classification, correlation, provenance.
func Build(idx *graph.Index) *Report {
	rep := &Report{
		Active:       activeset.Build(idx.Snapshot()),
		Orphans:      orphan.Classify(idx),
		Correlations: make(map[graph.Key]correlate.Record),
		Provenance:   make(map[graph.Key]correlate.MigrationInfo),
	}

	for _, rec := range correlate.Run(idx, rep.Orphans.DataVolumes) {
		rep.Correlations[graph.Key{Namespace: rec.Namespace, Name: rec.DataVolume}] = rec
	}

	// Provenance is attached regardless of correlation success.
	for _, od := range rep.Orphans.DataVolumes {
		dv := od.DataVolume
		if info, ok := correlate.MigrationProvenance(dv); ok {
			rep.Provenance[graph.Key{Namespace: dv.Namespace, Name: dv.Name}] = info
		}
	}

	return rep
}

// Correlation returns the correlation record for an orphaned
// DataVolume, if one was produced.
func (r *Report) Correlation(namespace, name string) (correlate.Record, bool) {
	rec, ok := r.Correlations[graph.Key{Namespace: namespace, Name: name}]
	return rec, ok
}

// MigrationInfo returns migration provenance for an orphaned
// DataVolume, if its labels carry the marker.
func (r *Report) MigrationInfo(namespace, name string) (correlate.MigrationInfo, bool) {
	info, ok := r.Provenance[graph.Key{Namespace: namespace, Name: name}]
	return info, ok
}

// DiskNode is one DataVolume under a VM with its resolved storage
// chain. Claim is nil when no PVC of the same name exists yet; Volume
// is nil while the claim is unbound or the claim is missing.
type DiskNode struct {
	DataVolume *model.DataVolume
	Claim      *model.Claim
	Volume     *model.Volume
}

// VMTree is the storage tree for one VirtualMachine.
type VMTree struct {
	VM    *model.VirtualMachine
	Disks []DiskNode
}

// BuildVMTree resolves the full storage chain for one VM. ok is false
// when the VM is not in the snapshot. Dangling links inside the chain
// (missing PVC, unbound PV) leave nil nodes rather than failing.
func BuildVMTree(idx *graph.Index, namespace, name string) (*VMTree, bool) {
	vm, ok := idx.VM(namespace, name)
	if !ok {
		return nil, false
	}

	tree := &VMTree{VM: vm}
	for _, dv := range idx.OwnedDataVolumes(vm.UID) {
		node := DiskNode{DataVolume: dv}
		if claim, ok := idx.Claim(dv.Namespace, dv.Name); ok {
			node.Claim = claim
			if claim.VolumeName != "" {
				if vol, ok := idx.Volume(claim.VolumeName); ok {
					node.Volume = vol
				}
			}
		}
		tree.Disks = append(tree.Disks, node)
	}

	sort.Slice(tree.Disks, func(i, j int) bool {
		return tree.Disks[i].DataVolume.Name < tree.Disks[j].DataVolume.Name
	})
	return tree, true
}
