/*
Package engine implements the backup autopilot's central orchestrator.
Engine is constructed once per run from a loaded config.Model, a
storage.Store, and a dry-run flag; it walks the configured services in
order, selecting a Hypervisor or Service adapter per kind and a
destination strategy per §4.6.1, then executes, verifies, records, and
retains one artifact per service.

The engine never parallelizes across services — grounded on warren's
scheduler, which runs one scheduling cycle at a time under its own
mutex, this package serializes the whole run instead: a single backup
engine only ever touches one service's backup directory at once, and
state-store writes for a given service are already serialized by the
store itself.
*/
package engine
