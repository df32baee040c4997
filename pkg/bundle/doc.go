/*
Package bundle parses OCI runtime bundles into hutch's configuration
model.

A bundle is a directory with a config.json (the OCI runtime spec) and a
rootfs. This package decodes the spec, resolves the rootfs path, and
maps the fields hutch cares about into types.BundleConfig, tracking
presence explicitly: optional fields stay nil when the bundle does not
set them, so downstream code can tell "unset" from "zero".

# Parsing Rules

config.json handling is strict:

  - Missing file: configuration-missing error
  - Larger than 10 MiB, malformed JSON, or a top-level non-object:
    invalid-format error
  - root.path defaults to "rootfs" and must be an existing directory

metadata.json handling is lenient. The file is an optional sidecar
carrying image-level hints (image reference, entrypoint, cmd, working
directory). A missing, oversized or corrupt metadata file never fails
the parse: the problem is recorded as a warning on the returned config
and logged, and parsing continues with what config.json provided.

# Usage

	cfg, err := bundle.Parse("/var/lib/hutch/bundles/web")
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

# See Also

  - pkg/convert which consumes the parsed config
  - pkg/types for the BundleConfig shape
*/
package bundle
