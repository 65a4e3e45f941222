// Package plan analyzes the impact of a storage class migration:
// which VMs hold DataVolumes on the source class, how many disks a
// migration would clone and how much storage that covers. Analysis is
// read-only; executing a migration is the external workflow's job.
package plan

import (
	"sort"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/virtops/vmtree/internal/graph"
	"github.com/virtops/vmtree/internal/model"
)

// VMDisks is one VM with its owned DataVolumes. Matching holds the
// subset on the storage class under analysis.
type VMDisks struct {
	VM          *model.VirtualMachine
	DataVolumes []*model.DataVolume
	Matching    []*model.DataVolume
}

// Plan is the migration impact summary for one storage class pair.
type Plan struct {
	FromStorageClass string
	ToStorageClass   string

	VMs              []VMDisks
	TotalDataVolumes int
	TotalStorage     resource.Quantity
}

// FindVMsUsingStorageClass returns every VM owning at least one
// DataVolume on the given storage class, sorted by namespace and
// name for stable output.
func FindVMsUsingStorageClass(idx *graph.Index, storageClass string) []VMDisks {
	snap := idx.Snapshot()

	var result []VMDisks
	for i := range snap.VirtualMachines {
		vm := &snap.VirtualMachines[i]
		owned := idx.OwnedDataVolumes(vm.UID)
		if len(owned) == 0 {
			continue
		}

		entry := VMDisks{VM: vm, DataVolumes: owned}
		for _, dv := range owned {
			if dv.StorageClassName == storageClass {
				entry.Matching = append(entry.Matching, dv)
			}
		}
		if len(entry.Matching) > 0 {
			result = append(result, entry)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].VM, result[j].VM
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
	return result
}

// Analyze computes the migration plan from the source class to the
// target class. Unparsable or absent sizes are skipped in the total
// rather than failing the analysis.
func Analyze(idx *graph.Index, fromSC, toSC string) *Plan {
	p := &Plan{
		FromStorageClass: fromSC,
		ToStorageClass:   toSC,
		VMs:              FindVMsUsingStorageClass(idx, fromSC),
	}

	for _, entry := range p.VMs {
		for _, dv := range entry.Matching {
			p.TotalDataVolumes++
			if qty, err := resource.ParseQuantity(dv.Size); err == nil {
				p.TotalStorage.Add(qty)
			}
		}
	}
	return p
}
