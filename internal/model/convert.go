package model

import (
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// VirtualMachineFromUnstructured normalizes a kubevirt.io
// VirtualMachine. Missing fields degrade to defaults; conversion
// never fails.
func VirtualMachineFromUnstructured(obj *unstructured.Unstructured) VirtualMachine {
	vm := VirtualMachine{
		Name:      obj.GetName(),
		Namespace: obj.GetNamespace(),
		UID:       obj.GetUID(),
		Status:    PhaseUnknown,
	}

	if status, ok, _ := unstructured.NestedString(obj.Object, "status", "printableStatus"); ok && status != "" {
		vm.Status = status
	}

	templates, _, _ := unstructured.NestedSlice(obj.Object, "spec", "dataVolumeTemplates")
	for _, t := range templates {
		tm, ok := t.(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok, _ := unstructured.NestedString(tm, "metadata", "name"); ok && name != "" {
			vm.TemplateDiskNames = append(vm.TemplateDiskNames, name)
		}
	}

	volumes, _, _ := unstructured.NestedSlice(obj.Object, "spec", "template", "spec", "volumes")
	for _, v := range volumes {
		vmap, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok, _ := unstructured.NestedString(vmap, "dataVolume", "name"); ok && name != "" {
			vm.BoundDiskNames = append(vm.BoundDiskNames, name)
		}
	}

	return vm
}

// DataVolumeFromUnstructured normalizes a cdi.kubevirt.io DataVolume.
// Size and storage class live under spec.storage on current CDI
// versions and under spec.pvc on older ones; both are read.
func DataVolumeFromUnstructured(obj *unstructured.Unstructured) DataVolume {
	dv := DataVolume{
		Name:        obj.GetName(),
		Namespace:   obj.GetNamespace(),
		UID:         obj.GetUID(),
		Phase:       PhaseUnknown,
		Labels:      obj.GetLabels(),
		Annotations: obj.GetAnnotations(),
		CreatedAt:   creationTimestamp(obj),
		Owners:      ownerRefs(obj),
	}
	if dv.Labels == nil {
		dv.Labels = map[string]string{}
	}
	if dv.Annotations == nil {
		dv.Annotations = map[string]string{}
	}

	if phase, ok, _ := unstructured.NestedString(obj.Object, "status", "phase"); ok && phase != "" {
		dv.Phase = phase
	}
	dv.Progress, _, _ = unstructured.NestedString(obj.Object, "status", "progress")

	conditions, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	for _, c := range conditions {
		cm, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		cond := Condition{}
		cond.Type, _, _ = unstructured.NestedString(cm, "type")
		cond.Status, _, _ = unstructured.NestedString(cm, "status")
		cond.Reason, _, _ = unstructured.NestedString(cm, "reason")
		cond.Message, _, _ = unstructured.NestedString(cm, "message")
		dv.Conditions = append(dv.Conditions, cond)
	}

	for _, specKey := range []string{"storage", "pvc"} {
		if dv.Size == "" {
			dv.Size, _, _ = unstructured.NestedString(obj.Object, "spec", specKey, "resources", "requests", "storage")
		}
		if dv.StorageClassName == "" {
			dv.StorageClassName, _, _ = unstructured.NestedString(obj.Object, "spec", specKey, "storageClassName")
		}
	}

	srcName, _, _ := unstructured.NestedString(obj.Object, "spec", "source", "pvc", "name")
	if srcName != "" {
		srcNS, _, _ := unstructured.NestedString(obj.Object, "spec", "source", "pvc", "namespace")
		if srcNS == "" {
			srcNS = dv.Namespace
		}
		dv.Source = &CloneSource{Namespace: srcNS, Name: srcName}
	}

	return dv
}

// ClaimFromPVC normalizes a typed PersistentVolumeClaim.
func ClaimFromPVC(pvc *corev1.PersistentVolumeClaim) Claim {
	c := Claim{
		Name:       pvc.Name,
		Namespace:  pvc.Namespace,
		UID:        pvc.UID,
		Phase:      PhaseUnknown,
		VolumeName: pvc.Spec.VolumeName,
	}
	if pvc.Status.Phase != "" {
		c.Phase = string(pvc.Status.Phase)
	}
	if qty, ok := pvc.Spec.Resources.Requests[corev1.ResourceStorage]; ok {
		c.Size = qty.String()
	}
	if pvc.Spec.StorageClassName != nil {
		c.StorageClassName = *pvc.Spec.StorageClassName
	}
	if !pvc.CreationTimestamp.IsZero() {
		c.CreatedAt = pvc.CreationTimestamp.UTC().Format(time.RFC3339)
	}
	for _, ref := range pvc.OwnerReferences {
		c.Owners = append(c.Owners, OwnerRef{Kind: ref.Kind, Name: ref.Name, UID: ref.UID})
	}
	return c
}

// VolumeFromPV normalizes a typed PersistentVolume.
func VolumeFromPV(pv *corev1.PersistentVolume) Volume {
	v := Volume{
		Name:             pv.Name,
		UID:              pv.UID,
		Phase:            PhaseUnknown,
		StorageClassName: pv.Spec.StorageClassName,
		ReclaimPolicy:    string(pv.Spec.PersistentVolumeReclaimPolicy),
	}
	if pv.Status.Phase != "" {
		v.Phase = string(pv.Status.Phase)
	}
	if qty, ok := pv.Spec.Capacity[corev1.ResourceStorage]; ok {
		v.Size = qty.String()
	}
	if !pv.CreationTimestamp.IsZero() {
		v.CreatedAt = pv.CreationTimestamp.UTC().Format(time.RFC3339)
	}
	if pv.Spec.ClaimRef != nil {
		v.ClaimNamespace = pv.Spec.ClaimRef.Namespace
		v.ClaimName = pv.Spec.ClaimRef.Name
	}
	return v
}

func ownerRefs(obj *unstructured.Unstructured) []OwnerRef {
	var refs []OwnerRef
	for _, ref := range obj.GetOwnerReferences() {
		refs = append(refs, OwnerRef{Kind: ref.Kind, Name: ref.Name, UID: ref.UID})
	}
	return refs
}

func creationTimestamp(obj *unstructured.Unstructured) string {
	ts := obj.GetCreationTimestamp()
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
