/*
Package lockfile provides advisory file locking for the JSON stores.

Locks are exclusive flock(2) locks on a sidecar file, so concurrent
hutch processes on one host serialize their read-modify-write cycles
over the identity mapping and state records. WithLock brackets a
critical section; locks die with the holding process, so a crash never
leaves a store wedged.
*/
package lockfile
