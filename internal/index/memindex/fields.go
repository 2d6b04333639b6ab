package memindex

import (
	"reflect"

	"github.com/flowcore/flowcore/internal/entity"
)

// extractFields reflects over ent's chronicle-tagged fields, one level
// deep, to build the variable set a Predicate evaluates against.
// Composite and nested-layout fields are passed through as their native
// Go value; cel-go's default type adapter handles primitives, slices,
// and maps, which covers every field a reference query needs to reason
// about.
func extractFields(ent entity.Entity) map[string]any {
	rv := reflect.ValueOf(ent)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	fields := make(map[string]any)
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, ok := f.Tag.Lookup("chronicle")
		if !ok || tag == "-" {
			continue
		}
		fields[tag] = rv.Field(i).Interface()
	}
	return fields
}
