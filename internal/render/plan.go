package render

import (
	"github.com/virtops/vmtree/internal/plan"
)

// Plan renders the migration impact analysis.
func (r *Renderer) Plan(p *plan.Plan, namespace string) {
	r.rule()
	r.printf("  %s\n", r.bold("STORAGE MIGRATION PLAN"))
	r.rule()
	r.println()
	r.printf("  From StorageClass: %s\n", r.warn(p.FromStorageClass))
	r.printf("  To StorageClass:   %s\n", r.ok(p.ToStorageClass))
	if namespace != "" {
		r.printf("  Namespace:         %s\n", namespace)
	} else {
		r.println("  Namespace:         All namespaces")
	}
	r.println()

	if len(p.VMs) == 0 {
		r.printf("%s\n", r.warn("No VMs found using storage class '"+p.FromStorageClass+"'"))
		r.println()
		r.rule()
		return
	}

	r.printf("Found %d VM(s) to migrate:\n\n", len(p.VMs))

	for i, entry := range p.VMs {
		vm := entry.VM
		r.printf("%d. %s %s (namespace: %s)\n", i+1, r.ok("VM:"), vm.Name, vm.Namespace)
		r.printf("   ├─ Status: %s\n", vm.Status)
		r.printf("   ├─ DataVolumes to migrate: %d\n", len(entry.Matching))

		for j, dv := range entry.Matching {
			last := j == len(entry.Matching)-1
			r.printf("   %s DataVolume: %s\n", branch(last), dv.Name)
			prefix := "   │  "
			if last {
				prefix = "      "
			}
			r.printf("%s├─ Size: %s\n", prefix, orEmpty(dv.Size))
			r.printf("%s└─ Current StorageClass: %s\n", prefix, orEmpty(dv.StorageClassName))
		}
		r.println()
	}

	r.rule()
	r.printf("  %s\n", r.bold("MIGRATION SUMMARY"))
	r.rule()
	r.printf("  VMs to migrate:        %d\n", len(p.VMs))
	r.printf("  DataVolumes to clone:  %d\n", p.TotalDataVolumes)
	r.printf("  Total storage:         %s\n", p.TotalStorage.String())
	r.println()
	r.printf("  %s\n", r.warn("A migration will:"))
	r.printf("     1. Create new DataVolumes on '%s'\n", p.ToStorageClass)
	r.println("     2. Clone data from the existing DataVolumes")
	r.println("     3. Update VMs to use the new DataVolumes")
	r.println("     4. Leave the old DataVolumes behind as orphans")
	r.println()
	r.printf("  %s\n", r.warn("Recommended:"))
	r.println("     1. Stop the VMs before migrating")
	r.println("     2. Back up critical VMs")
	r.println("     3. Run 'vmtree orphans' after verification to find leftovers")
	r.rule()
}
