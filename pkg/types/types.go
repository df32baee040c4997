package types

import (
	"time"
)

// OCIVersion is the OCI runtime spec version recorded in state files
const OCIVersion = "1.0.2"

// BundleConfig is the parsed content of an OCI bundle's config.json,
// optionally enriched from metadata.json. Optional fields are pointers or
// nil slices so callers can distinguish "not specified" from "explicitly
// empty".
type BundleConfig struct {
	// RootfsPath is the absolute path to the bundle rootfs. Always set
	// after a successful parse.
	RootfsPath string

	Hostname    *string
	ProcessArgs []string
	Env         []string
	Mounts      []MountSpec

	MemoryLimit    *int64   // bytes
	CPUShares      *float64 // relative weight
	Capabilities   []string
	SeccompProfile *string

	Annotations     map[string]string
	User            *string
	UID             *uint32
	GID             *uint32
	CgroupsPath     *string
	Namespaces      []string
	NoNewPrivileges *bool
	OOMScoreAdj     *int
	ReadonlyRootfs  *bool

	// Image metadata, populated best-effort from metadata.json
	ImageName  *string
	ImageTag   *string
	Entrypoint []string
	Cmd        []string
	WorkingDir *string

	// Warnings collected during the best-effort metadata phase. They never
	// fail the parse.
	Warnings []string
}

// MountSpec describes a single mount from the bundle configuration.
// Fields may be empty; a mount without a destination is not actionable
// and is skipped downstream.
type MountSpec struct {
	Source      string
	Destination string
	Type        string
	Options     []string
}

// MappingEntry is one record in the persisted container_id -> VMID table
type MappingEntry struct {
	VMID       uint32 `json:"vmid"`
	CreatedAt  int64  `json:"created_at"`
	BundlePath string `json:"bundle_path"`
}

// ContainerStatus is the OCI lifecycle status of a container
type ContainerStatus string

const (
	StatusCreated ContainerStatus = "created"
	StatusRunning ContainerStatus = "running"
	StatusStopped ContainerStatus = "stopped"
	StatusPaused  ContainerStatus = "paused"
)

// ContainerState is the OCI-shaped on-disk state record, extended with the
// Proxmox VMID and creation timestamp. The JSON layout is an external
// contract and must not change.
type ContainerState struct {
	OCIVersion  string            `json:"ociVersion"`
	ID          string            `json:"id"`
	Status      ContainerStatus   `json:"status"`
	Pid         int               `json:"pid"`
	Bundle      string            `json:"bundle"`
	Annotations map[string]string `json:"annotations,omitempty"`
	VMID        uint32            `json:"vmid"`
	CreatedAt   int64             `json:"created_at"`
}

// TemplateSource records where a cached template came from
type TemplateSource string

const (
	TemplateSourceOCIBundle  TemplateSource = "oci_bundle"
	TemplateSourceDownloaded TemplateSource = "downloaded"
	TemplateSourceAvailable  TemplateSource = "available"
	TemplateSourceCustom     TemplateSource = "custom"
)

// TemplateInfo is the cached metadata for one packaged template
type TemplateInfo struct {
	Name         string
	Path         string
	Size         int64
	CreatedAt    time.Time
	LastAccessed time.Time
	Source       TemplateSource
	Metadata     *TemplateMetadata
}

// TemplateMetadata carries image-level metadata for a template
type TemplateMetadata struct {
	ImageName  string
	ImageTag   string
	Entrypoint []string
	Cmd        []string
	WorkingDir string
	Labels     map[string]string
}
