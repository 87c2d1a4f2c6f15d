/*
Package health provides the HTTP health probe used by the generic service
adapter's validate() operation. A descriptor that carries a
health_check_url gets one GET request with a 10-second timeout; HTTP 200
is required.

This is deliberately a single-shot check, not a monitoring loop: the
adapter calls Check once per validate() invocation and returns the
boolean, it does not track consecutive failures across calls.
*/
package health
