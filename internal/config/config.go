// Package config holds the label/annotation convention shared with the
// external migration workflow, plus CLI defaults. The tool only reads
// these markers; the migration workflow writes them.
package config

import "time"

const (
	// LabelMigration marks a DataVolume created by a storage migration.
	LabelMigration = "storage-migration"

	// LabelSourceStorageClass records the storage class migrated from.
	LabelSourceStorageClass = "source-sc"

	// LabelTargetStorageClass records the storage class migrated to.
	LabelTargetStorageClass = "target-sc"

	// AnnotationMigrationTimestamp records when the migration object
	// was created.
	AnnotationMigrationTimestamp = "migration-timestamp"

	// DefaultNamespace is used when no namespace flag is given.
	DefaultNamespace = "default"

	// DefaultRefreshInterval is the watch-mode poll interval.
	DefaultRefreshInterval = 5 * time.Second
)
