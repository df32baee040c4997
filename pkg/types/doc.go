/*
Package types defines the shared data structures of hutch.

BundleConfig is the parsed view of an OCI bundle, with pointer fields
for everything optional so presence survives the parse. ContainerState
is the persisted state record, JSON-compatible with the OCI state
format plus the vmid and created_at extensions. MappingEntry is one row
of the container-name-to-VMID mapping, and TemplateInfo describes a
cached template archive.

The package has no behavior beyond the type definitions; every other
package imports it, it imports nothing of hutch.
*/
package types
