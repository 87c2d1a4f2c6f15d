package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gridkeeper/autopilot/pkg/types"
)

// Model is the validated, immutable configuration tree produced by Load.
type Model struct {
	doc      types.Document
	services map[string]*types.ServiceDescriptor
}

// Load reads primaryPath and every overlayPaths document in order,
// merges them, and validates the result. Validation errors are
// aggregated into a single ValidationErrors value.
func Load(primaryPath string, overlayPaths ...string) (*Model, error) {
	paths := append([]string{primaryPath}, overlayPaths...)

	raws := make([]map[string]interface{}, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		raws = append(raws, raw)
	}

	return load(raws)
}

// LoadBytes is Load's byte-oriented counterpart, used by tests and by
// callers that already have document contents in memory.
func LoadBytes(docs ...[]byte) (*Model, error) {
	raws := make([]map[string]interface{}, 0, len(docs))
	for i, data := range docs {
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("config: parse document %d: %w", i, err)
		}
		raws = append(raws, raw)
	}
	return load(raws)
}

func load(raws []map[string]interface{}) (*Model, error) {
	var errs ValidationErrors

	merged := mergeDocuments(raws)
	checkUnknownKeys(merged, &errs)

	remarshaled, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("config: remarshal merged document: %w", err)
	}

	var doc types.Document
	if err := yaml.Unmarshal(remarshaled, &doc); err != nil {
		return nil, fmt.Errorf("config: decode merged document: %w", err)
	}

	normalizeEnums(&doc)

	v := validator.New()
	validateStruct(v, &doc, &errs)
	validateSemantics(&doc, &errs)

	if err := errs.err(); err != nil {
		return nil, err
	}

	services := make(map[string]*types.ServiceDescriptor, len(doc.Services))
	for i := range doc.Services {
		services[doc.Services[i].Name] = &doc.Services[i]
	}

	return &Model{doc: doc, services: services}, nil
}

// GetServices returns every configured service descriptor.
func (m *Model) GetServices() []*types.ServiceDescriptor {
	out := make([]*types.ServiceDescriptor, 0, len(m.doc.Services))
	for i := range m.doc.Services {
		out = append(out, &m.doc.Services[i])
	}
	return out
}

// GetService returns the descriptor for name, or nil if absent.
func (m *Model) GetService(name string) *types.ServiceDescriptor {
	return m.services[name]
}

// Global returns the immutable global configuration section.
func (m *Model) Global() types.GlobalConfig {
	return m.doc.Global
}

// Get traverses a dotted path up to 5 levels deep against the merged
// document, returning def when any segment is absent. "global" is an
// accepted alias for the root namespace, so "global.backup.root" and
// "backup.root" resolve to the same value.
func (m *Model) Get(dottedPath string, def interface{}) interface{} {
	segments := strings.Split(dottedPath, ".")
	if len(segments) > 0 && segments[0] != "global" {
		segments = append([]string{"global"}, segments...)
	}
	if len(segments) > 5 {
		return def
	}

	root, err := structToMap(m.doc)
	if err != nil {
		return def
	}

	var cur interface{} = root
	for _, seg := range segments {
		asMap, ok := cur.(map[string]interface{})
		if !ok {
			return def
		}
		next, ok := asMap[seg]
		if !ok {
			return def
		}
		cur = next
	}
	return cur
}

func structToMap(doc types.Document) (map[string]interface{}, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
