package render

import (
	"github.com/virtops/vmtree/internal/report"
)

// VMTree renders the storage tree of one VirtualMachine:
// VM, DataVolumes, Claim, Volume, with dangling links shown as
// "(not found)" / "(not yet bound)" leaves.
func (r *Renderer) VMTree(tree *report.VMTree) {
	vm := tree.VM

	r.rule()
	r.printf("  %s (namespace: %s)\n", r.bold("VM Storage Tree: "+vm.Name), vm.Namespace)
	r.rule()
	r.println()

	r.printf("%s %s\n", r.ok("VirtualMachine:"), vm.Name)
	r.printf("├─ UID: %s\n", vm.UID)
	r.printf("├─ Status: %s\n", r.phaseColor(vm.Status)(vm.Status))
	r.println("│")

	if len(tree.Disks) == 0 {
		r.println("└─ (no DataVolumes found)")
		return
	}

	r.printf("├─ %s (%d found)\n", r.info("DataVolumes:"), len(tree.Disks))

	for i, disk := range tree.Disks {
		last := i == len(tree.Disks)-1
		r.disk(disk, last)
		if !last {
			r.println("│")
		}
	}

	r.println()
	r.rule()
}

func (r *Renderer) disk(disk report.DiskNode, last bool) {
	dv := disk.DataVolume
	prefix := childPrefix("", last)

	r.printf("│  %s DataVolume: %s\n", branch(last), dv.Name)
	r.printf("%s   ├─ Phase: %s\n", prefix, r.phaseColor(dv.Phase)(dv.Phase))
	r.printf("%s   ├─ Size: %s\n", prefix, orEmpty(dv.Size))
	r.printf("%s   ├─ StorageClass: %s\n", prefix, orEmpty(dv.StorageClassName))

	if disk.Claim == nil {
		r.printf("%s   └─ PersistentVolumeClaim: (not found)\n", prefix)
		return
	}

	claim := disk.Claim
	r.printf("%s   │\n", prefix)
	r.printf("%s   └─ %s %s\n", prefix, r.claim("PersistentVolumeClaim:"), claim.Name)
	r.printf("%s      ├─ Status: %s\n", prefix, r.phaseColor(claim.Phase)(claim.Phase))

	if disk.Volume == nil {
		r.printf("%s      └─ PersistentVolume: (not yet bound)\n", prefix)
		return
	}

	vol := disk.Volume
	warning := ""
	if vol.ReclaimPolicy == "Delete" {
		warning = " " + r.warn("(Data will be deleted with PVC!)")
	}
	r.printf("%s      │\n", prefix)
	r.printf("%s      └─ %s %s\n", prefix, r.header("PersistentVolume:"), vol.Name)
	r.printf("%s         ├─ Size: %s\n", prefix, orEmpty(vol.Size))
	r.printf("%s         └─ ReclaimPolicy: %s%s\n", prefix, vol.ReclaimPolicy, warning)
}
