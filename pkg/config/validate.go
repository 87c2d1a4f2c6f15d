package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gridkeeper/autopilot/pkg/types"
)

var rootAllowedKeys = map[string]bool{"global": true, "services": true}

var globalAllowedKeys = map[string]bool{"hypervisor": true, "backup": true, "notification": true}

// checkUnknownKeys rejects keys outside the root and global.* sections per
// the spec; service descriptors are explicitly exempt so adapters may
// carry extra fields.
func checkUnknownKeys(raw map[string]interface{}, errs *ValidationErrors) {
	for key := range raw {
		if !rootAllowedKeys[key] {
			errs.add(key, "unknown key at root")
		}
	}
	global, ok := raw["global"].(map[string]interface{})
	if !ok {
		return
	}
	for key := range global {
		if !globalAllowedKeys[key] {
			errs.add("global."+key, "unknown key under global")
		}
	}
}

// normalizeEnums lowercases every enum-bearing field in place, ahead of
// struct-tag validation, so "VM" and "vm" are equivalent in source YAML.
func normalizeEnums(doc *types.Document) {
	doc.Global.Hypervisor.Kind = strings.ToLower(doc.Global.Hypervisor.Kind)
	doc.Global.Notification.Kind = strings.ToLower(doc.Global.Notification.Kind)
	if doc.Global.Backup.DirectSharedStorage != nil {
		doc.Global.Backup.DirectSharedStorage.Format = strings.ToLower(doc.Global.Backup.DirectSharedStorage.Format)
	}
	for i := range doc.Services {
		doc.Services[i].Kind = types.ServiceKind(strings.ToLower(string(doc.Services[i].Kind)))
	}
}

// validateStruct runs go-playground/validator struct-tag validation over
// the decoded document and translates FieldErrors into ValidationErrors.
func validateStruct(v *validator.Validate, doc *types.Document, errs *ValidationErrors) {
	if err := v.Struct(doc); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			errs.add("", err.Error())
			return
		}
		for _, fe := range fieldErrs {
			errs.add(fe.Namespace(), fe.Tag())
		}
	}
}

// validateSemantics enforces the rules a struct tag can't express: absolute
// paths, per-kind required fields, name uniqueness, and the
// password/password_command pairing on the remote archive server.
func validateSemantics(doc *types.Document, errs *ValidationErrors) {
	if doc.Global.Backup.Root != "" && !filepath.IsAbs(doc.Global.Backup.Root) {
		errs.add("global.backup.root", "must be an absolute path")
	}

	if ras := doc.Global.Backup.RemoteArchiveServer; ras != nil && ras.Enabled {
		if ras.Password == "" && ras.PasswordCommand == "" {
			errs.add("global.backup.remote_archive_server", "one of password or password_command is required when enabled")
		}
		if ras.Port == 0 {
			ras.Port = 8007
		}
	}

	if dss := doc.Global.Backup.DirectSharedStorage; dss != nil && dss.Enabled {
		if dss.Path != "" && !filepath.IsAbs(dss.Path) {
			errs.add("global.backup.direct_shared_storage.path", "must be an absolute path")
		}
	}

	seen := make(map[string]bool, len(doc.Services))
	for i, svc := range doc.Services {
		path := fmt.Sprintf("services[%d]", i)
		if svc.Name == "" {
			errs.add(path+".name", "name is required")
		} else if seen[svc.Name] {
			errs.add(path+".name", fmt.Sprintf("duplicate service name %q", svc.Name))
		} else {
			seen[svc.Name] = true
		}

		switch svc.Kind {
		case types.KindVM, types.KindLXC:
			if svc.VMID == 0 {
				errs.add(path+".vmid", "vmid is required for vm/lxc services")
			}
			if svc.Node == "" {
				errs.add(path+".node", "node is required for vm/lxc services")
			}
		case types.KindDocker:
			if svc.ContainerName == "" {
				errs.add(path+".container_name", "container_name is required for docker services")
			}
		case types.KindSystemd:
			if svc.UnitName == "" {
				errs.add(path+".unit_name", "unit_name is required for systemd services")
			}
		case types.KindGeneric, types.KindHost:
			for j, p := range svc.BackupPaths {
				if !filepath.IsAbs(p) {
					errs.add(fmt.Sprintf("%s.backup_paths[%d]", path, j), "must be an absolute path")
				}
			}
		}
	}
}
