/*
Package config loads and validates the autopilot configuration tree: one
primary YAML document plus zero or more overlay documents, merged and
checked against the schema in pkg/types before the engine ever sees it.

Merge semantics follow spec.md §4.2: mappings merge recursively key by
key; scalars and sequences overwrite, with one exception — the top-level
services sequence is appended across documents rather than replaced.
Services are identified by name; a name repeated across documents (after
the append) is a validation error.

Validation runs eagerly at load, in the style of
ipiton-alert-history-service's routing.Parser: YAML unmarshal, then
go-playground/validator struct-tag validation, then a semantic pass for
rules a struct tag cannot express (absolute-path checks, per-kind
required fields, unknown-key rejection at the root and under global).
Every failure is collected into one aggregated error rather than
stopping at the first.

Once loaded, a Model is immutable: Get, GetServices and GetService only
read the parsed tree.
*/
package config
