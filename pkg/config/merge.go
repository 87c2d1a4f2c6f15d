package config

// mergeDocuments folds overlay maps onto base in document order. Mappings
// merge recursively key by key. Scalars and sequences overwrite, except
// the root "services" sequence, which is appended instead of replaced —
// the one exception called out in the merge semantics.
func mergeDocuments(docs []map[string]interface{}) map[string]interface{} {
	if len(docs) == 0 {
		return map[string]interface{}{}
	}
	result := deepCopyMap(docs[0])
	for _, doc := range docs[1:] {
		result = mergeMap(result, doc, true)
	}
	return result
}

func mergeMap(base, overlay map[string]interface{}, isRoot bool) map[string]interface{} {
	if base == nil {
		base = map[string]interface{}{}
	}
	for key, overlayVal := range overlay {
		if isRoot && key == "services" {
			base[key] = appendServices(base[key], overlayVal)
			continue
		}

		baseVal, exists := base[key]
		if !exists {
			base[key] = overlayVal
			continue
		}

		baseMap, baseIsMap := baseVal.(map[string]interface{})
		overlayMap, overlayIsMap := overlayVal.(map[string]interface{})
		if baseIsMap && overlayIsMap {
			base[key] = mergeMap(baseMap, overlayMap, false)
			continue
		}

		// Scalars and sequences overwrite.
		base[key] = overlayVal
	}
	return base
}

func appendServices(base, overlay interface{}) interface{} {
	baseList, _ := base.([]interface{})
	overlayList, _ := overlay.([]interface{})
	out := make([]interface{}, 0, len(baseList)+len(overlayList))
	out = append(out, baseList...)
	out = append(out, overlayList...)
	return out
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = deepCopyMap(val)
		case []interface{}:
			out[k] = append([]interface{}{}, val...)
		default:
			out[k] = v
		}
	}
	return out
}
