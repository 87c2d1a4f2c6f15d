/*
Package proxmox implements the Hypervisor capability against a Proxmox VE
REST API, in the style of keldris' internal/vms client: a lazily
constructed *http.Client reused for the process lifetime, PVEAPIToken
header auth, and a thin envelope decoder for the {data, errors} response
shape every Proxmox endpoint returns.

Before any operation on a vmid, the adapter re-resolves its node through
the cluster resources index rather than trusting the descriptor's node
hint — the hint is only a fallback for when that lookup fails, so a VM
that migrated since the config was written is still backed up on the
node it actually lives on.

No method here returns an error to its caller across the adapter
boundary: every expected failure (HTTP error, task failure, timeout) is
logged and reduced to a false return, matching the capability contract
in pkg/adapter.
*/
package proxmox
