/*
Package generic implements the Service capability for docker, systemd,
generic and host service descriptors: application-level backup, update,
validate, rollback and status, as opposed to proxmox's hypervisor-level
operations.

Each backup produces one tar+gzip archive at the destination path,
staged in a temporary directory beside that path and removed
unconditionally afterward, win or lose. Docker and systemd shell out to
their respective CLIs (docker, systemctl, apt-get/dnf) via os/exec rather
than a client library — there is no Go Docker SDK in this module's
dependency set, and the CLI is already what a homelab host has
installed.

Named Docker volumes are captured by running a short-lived alpine
helper container that mounts the volume read-only and streams
`tar czf -` of its contents back over stdout; bind mounts are skipped by
design, matching the spec's "named volumes only" rule.
*/
package generic
