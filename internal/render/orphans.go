package render

import (
	"fmt"
	"strings"

	"github.com/virtops/vmtree/internal/plan"
	"github.com/virtops/vmtree/internal/report"
)

// Orphans renders the orphan report: the three classified sets with
// correlation records and migration provenance attached to the
// DataVolume entries.
func (r *Renderer) Orphans(rep *report.Report, namespace string) {
	r.rule()
	r.printf("  %s\n", r.bold("Orphaned Storage Resources"))
	if namespace != "" {
		r.printf("  %s\n", r.bold("Namespace: "+namespace))
	} else {
		r.printf("  %s\n", r.bold("All Namespaces"))
	}
	r.rule()
	r.println()

	if rep.Orphans.Total() == 0 {
		r.printf("%s\n", r.ok("No orphaned resources found!"))
		r.println()
		r.rule()
		return
	}

	r.printf("%s\n\n", r.warn(fmt.Sprintf("Found %d orphaned resource(s):", rep.Orphans.Total())))

	r.orphanedDataVolumes(rep)
	r.orphanedClaims(rep)
	r.orphanedVolumes(rep)

	r.rule()
	r.printf("%s\n", r.warn("These resources consume storage but are not used by any VM."))
	r.printf("%s\n", r.warn("Consider cleaning up to reclaim storage."))
	r.rule()
}

func (r *Renderer) orphanedDataVolumes(rep *report.Report) {
	orphans := rep.Orphans.DataVolumes
	if len(orphans) == 0 {
		return
	}

	r.printf("%s\n", r.fail(fmt.Sprintf("Orphaned DataVolumes: %d", len(orphans))))
	r.printf("%s\n\n", r.warn("(Not owned by any VirtualMachine, or no longer in the owning VM's spec)"))

	for _, od := range orphans {
		dv := od.DataVolume

		lines := []string{
			"Namespace: " + dv.Namespace,
			"Size: " + orEmpty(dv.Size),
			"StorageClass: " + orEmpty(dv.StorageClassName),
			"Phase: " + dv.Phase,
			"Reason: " + string(od.Reason),
			"Created: " + orEmpty(dv.CreatedAt),
		}

		if rec, ok := rep.Correlation(dv.Namespace, dv.Name); ok {
			lines = append(lines,
				fmt.Sprintf("Probable owner: %s/%s (%s), confidence: %s",
					rec.VMNamespace, rec.VMName, rec.VMStatus, rec.Confidence),
				"Cause: "+rec.Reason,
			)
			if len(rec.ReplacedBy) > 0 {
				lines = append(lines, "Replaced by: "+strings.Join(rec.ReplacedBy, ", "))
			}
			if len(rec.ActiveDisks) > 0 {
				lines = append(lines, "VM active disks: "+strings.Join(rec.ActiveDisks, ", "))
			}
		}

		if info, ok := rep.MigrationInfo(dv.Namespace, dv.Name); ok {
			line := "Migration: " + orEmpty(info.SourceStorageClass) + " to " + orEmpty(info.TargetStorageClass)
			if info.Timestamp != "" {
				line += " at " + info.Timestamp
			}
			lines = append(lines, line)
		}

		r.printf("  • %s %s\n", r.info("DataVolume:"), dv.Name)
		r.detailLines(lines)
	}
}

func (r *Renderer) orphanedClaims(rep *report.Report) {
	orphans := rep.Orphans.Claims
	if len(orphans) == 0 {
		return
	}

	r.printf("%s\n", r.fail(fmt.Sprintf("Orphaned PVCs: %d", len(orphans))))
	r.printf("%s\n\n", r.warn("(Not owned by any DataVolume)"))

	for _, oc := range orphans {
		c := oc.Claim
		r.printf("  • %s %s\n", r.claim("PersistentVolumeClaim:"), c.Name)
		r.detailLines([]string{
			"Namespace: " + c.Namespace,
			"Size: " + orEmpty(c.Size),
			"StorageClass: " + orEmpty(c.StorageClassName),
			"Status: " + c.Phase,
			"Volume: " + orEmpty(c.VolumeName),
			"Created: " + orEmpty(c.CreatedAt),
		})
	}
}

func (r *Renderer) orphanedVolumes(rep *report.Report) {
	orphans := rep.Orphans.Volumes
	if len(orphans) == 0 {
		return
	}

	r.printf("%s\n", r.fail(fmt.Sprintf("Orphaned PVs: %d", len(orphans))))
	r.printf("%s\n\n", r.warn("(Released or Failed state)"))

	for _, ov := range orphans {
		v := ov.Volume
		lines := []string{
			"Size: " + orEmpty(v.Size),
			"StorageClass: " + orEmpty(v.StorageClassName),
			"ReclaimPolicy: " + orEmpty(v.ReclaimPolicy),
			"Status: " + v.Phase,
			"ClaimRef: " + orEmpty(claimRef(v.ClaimNamespace, v.ClaimName)),
			"Created: " + orEmpty(v.CreatedAt),
		}
		if ov.DataLoss {
			lines = append(lines, r.warn("Reclaim policy Delete: data is lost when the claim record is removed"))
		}
		r.printf("  • %s %s\n", r.header("PersistentVolume:"), v.Name)
		r.detailLines(lines)
	}
}

// StorageClassUsage renders the VMs holding DataVolumes on one
// storage class.
func (r *Renderer) StorageClassUsage(storageClass string, vms []plan.VMDisks) {
	r.rule()
	r.printf("  %s\n", r.bold("VMs using StorageClass: "+storageClass))
	r.rule()
	r.println()

	if len(vms) == 0 {
		r.printf("%s\n", r.warn("No VMs found using StorageClass '"+storageClass+"'"))
		return
	}

	r.printf("Found %d VM(s):\n\n", len(vms))
	for _, entry := range vms {
		vm := entry.VM
		r.printf("  • %s (namespace: %s)\n", r.ok(vm.Name), vm.Namespace)
		r.detailLines([]string{
			"Status: " + vm.Status,
			fmt.Sprintf("DataVolumes: %d (%d on %s)", len(entry.DataVolumes), len(entry.Matching), storageClass),
		})
	}
	r.rule()
}

// detailLines prints attribute lines under a bullet with tree glyphs.
func (r *Renderer) detailLines(lines []string) {
	for i, line := range lines {
		r.printf("    %s %s\n", branch(i == len(lines)-1), line)
	}
	r.println()
}

func claimRef(namespace, name string) string {
	if name == "" {
		return ""
	}
	if namespace == "" {
		return name
	}
	return namespace + "/" + name
}
