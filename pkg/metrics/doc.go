/*
Package metrics defines the Prometheus counters and histograms emitted by one
backup_all_services run: per-service backup outcomes and duration, artifact
size, retention deletions, notification delivery, and overall run duration.

Metrics are process-local (registered against the default registry).
Handler returns a scrape handler for them, but autopilotd does not serve
it: it is a one-shot CLI invocation, not a long-running server, so it
writes a GatherText snapshot to a file instead, and there is no periodic
collector polling live state the way a cluster manager would.

The Timer helper records an elapsed duration and reports it into either a
plain histogram or a labeled histogram vec; every stage of the engine that
times itself uses it the same way.
*/
package metrics
