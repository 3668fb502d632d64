package llm

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into a strict structured-output schema: every
// object closed to extra properties and every property required. Nullable
// fields are declared with `jsonschema:"oneof_type=string;null"`.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schemaObj, err := schemaToMap(reflector.Reflect(v))
	if err != nil {
		panic(err)
	}
	delete(schemaObj, "$schema")
	delete(schemaObj, "$id")
	ensureStrict(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func ensureStrict(schema map[string]any) {
	collapseTypeUnion(schema)

	properties, hasProps := schema["properties"].(map[string]any)
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if hasProps {
			required := make([]string, 0, len(properties))
			for name := range properties {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	for _, prop := range properties {
		if m, ok := prop.(map[string]any); ok {
			ensureStrict(m)
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		ensureStrict(items)
	}
}

// collapseTypeUnion rewrites {"oneOf":[{"type":"string"},{"type":"null"}]}
// into {"type":["string","null"]}.
func collapseTypeUnion(schema map[string]any) {
	variants, ok := schema["oneOf"].([]any)
	if !ok || len(variants) == 0 {
		return
	}
	types := make([]any, 0, len(variants))
	for _, v := range variants {
		m, ok := v.(map[string]any)
		if !ok || len(m) != 1 {
			return
		}
		t, ok := m["type"].(string)
		if !ok {
			return
		}
		types = append(types, t)
	}
	delete(schema, "oneOf")
	schema["type"] = types
}
