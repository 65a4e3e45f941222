// Package model holds the normalized, typed view of the four storage
// resource kinds vmtree reasons about. Records are plain values: all
// analysis lives in graph, activeset, orphan and correlate.
package model

import "k8s.io/apimachinery/pkg/types"

// Phase vocabulary for DataVolumes (CDI) and the subset of PVC/PV
// phases the classifier cares about. Anything unrecognized or absent
// normalizes to PhaseUnknown.
const (
	PhaseSucceeded            = "Succeeded"
	PhaseBound                = "Bound"
	PhaseImportInProgress     = "ImportInProgress"
	PhaseCloneInProgress      = "CloneInProgress"
	PhaseRunning              = "Running"
	PhasePending              = "Pending"
	PhaseWaitForFirstConsumer = "WaitForFirstConsumer"
	PhaseFailed               = "Failed"
	PhaseReleased             = "Released"
	PhaseUnknown              = "Unknown"
)

// Resource kinds as they appear in owner references.
const (
	KindVirtualMachine = "VirtualMachine"
	KindDataVolume     = "DataVolume"
	KindClaim          = "PersistentVolumeClaim"
	KindVolume         = "PersistentVolume"
)

// OwnerRef is a possibly-dangling pointer to the object that logically
// created a resource. Resolution happens in graph; holding an OwnerRef
// never implies the owner still exists.
type OwnerRef struct {
	Kind string
	Name string
	UID  types.UID
}

// CloneSource records clone provenance on a DataVolume: the PVC (and
// therefore the DataVolume of the same name) the disk was cloned from.
type CloneSource struct {
	Namespace string
	Name      string
}

// VirtualMachine is a managed compute workload. TemplateDiskNames come
// from spec.dataVolumeTemplates; BoundDiskNames from the dataVolume
// entries of spec.template.spec.volumes. The bindings are ground truth
// for current use; templates may lag after a spec patch.
type VirtualMachine struct {
	Name      string
	Namespace string
	UID       types.UID
	Status    string

	TemplateDiskNames []string
	BoundDiskNames    []string
}

// Condition is one status condition on a DataVolume. Conditions with
// Status "False" carry the failure diagnostics CDI reports.
type Condition struct {
	Type    string
	Status  string
	Reason  string
	Message string
}

// DataVolume is an import or clone of a disk image bound to
// underlying storage.
type DataVolume struct {
	Name             string
	Namespace        string
	UID              types.UID
	Phase            string
	Progress         string
	Size             string
	StorageClassName string
	CreatedAt        string

	Owners      []OwnerRef
	Source      *CloneSource
	Conditions  []Condition
	Labels      map[string]string
	Annotations map[string]string
}

// FailureConditions returns the conditions with Status "False", the
// ones holding the reason and message for a failed import or clone.
func (d *DataVolume) FailureConditions() []Condition {
	var failed []Condition
	for _, c := range d.Conditions {
		if c.Status == "False" {
			failed = append(failed, c)
		}
	}
	return failed
}

// Claim is a PersistentVolumeClaim.
type Claim struct {
	Name             string
	Namespace        string
	UID              types.UID
	Phase            string
	Size             string
	StorageClassName string
	VolumeName       string
	CreatedAt        string

	Owners []OwnerRef
}

// Volume is a cluster-scoped PersistentVolume. ClaimNamespace and
// ClaimName come from spec.claimRef and may dangle.
type Volume struct {
	Name             string
	UID              types.UID
	Phase            string
	Size             string
	StorageClassName string
	ReclaimPolicy    string
	CreatedAt        string

	ClaimNamespace string
	ClaimName      string
}

// Snapshot is one point-in-time view of the cluster's storage objects,
// possibly scoped to a single namespace. Every run recomputes its
// derived indices from a fresh Snapshot; nothing persists across runs.
type Snapshot struct {
	VirtualMachines []VirtualMachine
	DataVolumes     []DataVolume
	Claims          []Claim
	Volumes         []Volume
}

// VMOwner returns the first VirtualMachine owner reference on the
// DataVolume, if any.
func (d *DataVolume) VMOwner() (OwnerRef, bool) {
	for _, ref := range d.Owners {
		if ref.Kind == KindVirtualMachine {
			return ref, true
		}
	}
	return OwnerRef{}, false
}

// DVOwner returns the first DataVolume owner reference on the Claim,
// if any.
func (c *Claim) DVOwner() (OwnerRef, bool) {
	for _, ref := range c.Owners {
		if ref.Kind == KindDataVolume {
			return ref, true
		}
	}
	return OwnerRef{}, false
}
