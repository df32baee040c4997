/*
Package template tracks packaged container templates in a local bbolt
database.

Every template hutch produces (and any it is told about) gets a record
with its source, archive path, size and timestamps. The cache lets the
CLI list what exists, reuse templates across containers, and prune
archives that have not been touched in a while.

# Storage

Records are JSON-encoded TemplateInfo values in a single bbolt bucket
keyed by template name. bbolt gives single-file durability with no
server process, which matches how hutch runs: one binary on one Proxmox
node.

# Usage

	cache, err := template.Open(cfg.TemplateDBPath())
	if err != nil {
		return err
	}
	defer cache.Close()

	infos, err := cache.List()
	removed, err := cache.PruneOlderThan(30 * 24 * time.Hour)

Touch updates the last-accessed timestamp; PruneOlderThan falls back to
the creation time for records that were never touched.

# See Also

  - pkg/convert which produces the archives being tracked
  - cmd/hutch for the template list and prune commands
*/
package template
