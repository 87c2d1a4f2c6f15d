/*
Package notify implements the Notifier capability: exactly one active
transport delivers the engine's per-run summary. Webhook, grounded on
ipiton-alert-history-service's WebhookHTTPClient, reuses its connection
pooling and TLS 1.2 floor settings; Log always succeeds and writes
through pkg/log, serving as the default when no notification transport
is configured. A configured webhook that cannot be reached is not
replaced by Log; its send simply fails.
*/
package notify
