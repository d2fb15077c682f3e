package rfc5424

import "strings"

// StructuredData is the nested form of a message's structured data,
// SD-ID to PARAM-NAME to PARAM-VALUE.
type StructuredData map[string]map[string]string

// param is one decoded SD-PARAM.
type param struct {
	name  string
	value string
}

// flattenElement writes the params of one SD-ELEMENT into b.
func flattenElement(b *builder, names NameProvider, id string, params []param) {
	for _, p := range params {
		b.put(names.StructuredParam(id, p.name), p.value)
	}
}

// Flatten converts nested structured data into a Record keyed by names.
func Flatten(sd StructuredData, names NameProvider) Record {
	b := newBuilder()
	for id, params := range sd {
		for name, value := range params {
			b.put(names.StructuredParam(id, name), value)
		}
	}
	return b.finalize()
}

// Unflatten rebuilds nested structured data from a flat Record. Keys that
// do not match names.StructuredParamPattern are ignored, as is every key
// when names has no pattern. A null value is stored as the empty string.
// The returned map is empty, never nil, when the record carries no
// structured data.
func Unflatten(r Record, names NameProvider) StructuredData {
	sd := StructuredData{}

	pattern := names.StructuredParamPattern()
	if pattern == nil {
		return sd
	}

	base := names.StructuredBase()
	found := false
	for k := range r.fields {
		if strings.HasPrefix(k, base) {
			found = true
			break
		}
	}
	if !found {
		return sd
	}

	for k, v := range r.fields {
		m := pattern.FindStringSubmatch(k)
		if m == nil || len(m) != 3 {
			continue
		}
		id, name := m[1], m[2]
		if _, ok := sd[id]; !ok {
			sd[id] = map[string]string{}
		}
		if v == nil {
			sd[id][name] = ""
		} else {
			sd[id][name] = *v
		}
	}
	return sd
}
