/*
Package storage is the durable, typed key/value state store every backup
run reads and writes. It is BoltDB-backed (go.etcd.io/bbolt) for the same
reason warren's cluster store is: a single embedded file, ACID
transactions, zero external services to stand up in a homelab.

# Typing discipline

A value is one of {nil, bool, int64, float64, string, time.Time,
structured}. Structured values (maps, slices) round-trip through JSON.
Booleans are checked before numeric coercion at the encode/decode
boundary — see bolt_test.go — matching the discipline the engine's
predecessor used for the same reason: without it, stored booleans decode
back as 0/1 integers.

# Concurrency

All operations on one BoltStore are serialized by that store's own mutex
in addition to bbolt's transaction locking, so multiple goroutines may
share one handle concurrently. bbolt holds an exclusive lock on the file
while it is open: a second Open of the same path waits up to five seconds
and then fails, so only one handle per file is usable at a time. Every
Set commits before returning: durability is per-call, not batched.
*/
package storage
