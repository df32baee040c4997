/*
Package config loads and validates the hutch engine configuration.

Configuration is a single YAML file merged over working defaults, so an
absent or empty file still yields a runnable engine. Validate rejects
values the engine cannot operate with (relative paths, non-positive
timeouts) at load time rather than at first use.

Derived paths (mapping file, state directory, work directory, template
database) are methods on Config so the directory layout under data_dir
is decided in exactly one place.
*/
package config
