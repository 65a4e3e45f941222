// Package snapshot fetches a point-in-time view of the cluster's VM
// storage objects. VirtualMachines and DataVolumes are CRDs and read
// unstructured; claims and volumes use the typed core API.
package snapshot

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/virtops/vmtree/internal/model"
)

// GroupVersionKinds of the virtualization CRDs the fetcher reads.
var (
	VirtualMachineListGVK = schema.GroupVersionKind{
		Group: "kubevirt.io", Version: "v1", Kind: "VirtualMachineList",
	}
	DataVolumeListGVK = schema.GroupVersionKind{
		Group: "cdi.kubevirt.io", Version: "v1beta1", Kind: "DataVolumeList",
	}
)

// Fetcher lists and normalizes the four resource kinds.
type Fetcher struct {
	Client client.Reader
}

// NewFetcher creates a Fetcher with the given client.
func NewFetcher(c client.Reader) *Fetcher {
	return &Fetcher{Client: c}
}

// Fetch lists all four kinds, scoped to namespace when non-empty.
// Volumes are cluster-scoped and always listed cluster-wide. A list
// failure (including a missing KubeVirt or CDI CRD) aborts the fetch.
func (f *Fetcher) Fetch(ctx context.Context, namespace string) (*model.Snapshot, error) {
	snap := &model.Snapshot{}

	var scope []client.ListOption
	if namespace != "" {
		scope = append(scope, client.InNamespace(namespace))
	}

	vms := &unstructured.UnstructuredList{}
	vms.SetGroupVersionKind(VirtualMachineListGVK)
	if err := f.Client.List(ctx, vms, scope...); err != nil {
		return nil, fmt.Errorf("listing VirtualMachines (is KubeVirt installed?): %w", err)
	}
	for i := range vms.Items {
		snap.VirtualMachines = append(snap.VirtualMachines, model.VirtualMachineFromUnstructured(&vms.Items[i]))
	}

	dvs := &unstructured.UnstructuredList{}
	dvs.SetGroupVersionKind(DataVolumeListGVK)
	if err := f.Client.List(ctx, dvs, scope...); err != nil {
		return nil, fmt.Errorf("listing DataVolumes (is CDI installed?): %w", err)
	}
	for i := range dvs.Items {
		snap.DataVolumes = append(snap.DataVolumes, model.DataVolumeFromUnstructured(&dvs.Items[i]))
	}

	var pvcs corev1.PersistentVolumeClaimList
	if err := f.Client.List(ctx, &pvcs, scope...); err != nil {
		return nil, fmt.Errorf("listing PersistentVolumeClaims: %w", err)
	}
	for i := range pvcs.Items {
		snap.Claims = append(snap.Claims, model.ClaimFromPVC(&pvcs.Items[i]))
	}

	var pvs corev1.PersistentVolumeList
	if err := f.Client.List(ctx, &pvs); err != nil {
		return nil, fmt.Errorf("listing PersistentVolumes: %w", err)
	}
	for i := range pvs.Items {
		snap.Volumes = append(snap.Volumes, model.VolumeFromPV(&pvs.Items[i]))
	}

	return snap, nil
}

// StorageClassExists reports whether the named StorageClass exists.
// Absence is an answer, not an error.
func (f *Fetcher) StorageClassExists(ctx context.Context, name string) (bool, error) {
	var sc storagev1.StorageClass
	err := f.Client.Get(ctx, client.ObjectKey{Name: name}, &sc)
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting StorageClass %s: %w", name, err)
	}
	return true, nil
}
