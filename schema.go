package corert

// SchemaEntry binds a required/optional named key in a Map to a typed
// out-pointer, mirroring ggl_map_validate's GGL_MAP_SCHEMA entries. A Type
// of KindNull (the zero value) means "accept any type".
type SchemaEntry struct {
	Key      Buffer
	Required bool
	Type     ValueKind
	// AnyType, when true, overrides Type and accepts any value kind, the
	// same as leaving Type at KindNull.
	AnyType bool
	Out     *Value
}

// Validate checks m against schema: a missing required key fails NOENTRY;
// a present key whose observed type doesn't match the schema type fails
// PARSE; otherwise the entry's Out pointer is bound to the found value (or
// left nil/unset for an optional-missing entry).
func Validate(m []KV, schema []SchemaEntry) error {
	for i := range schema {
		entry := &schema[i]
		val, ok := MapGet(m, entry.Key)
		if !ok {
			if entry.Required {
				return NewErr("map_validate", KindNoEntry, "missing required key: "+entry.Key.String())
			}
			continue
		}
		if !entry.AnyType && entry.Type != KindNull && val.Kind != entry.Type {
			return NewErr("map_validate", KindParse, "wrong type for key: "+entry.Key.String())
		}
		if entry.Out != nil {
			*entry.Out = val
		}
	}
	return nil
}
