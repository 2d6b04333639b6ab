package layout

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"
)

var (
	uuidType  = reflect.TypeOf(uuid.UUID{})
	byteType  = reflect.TypeOf(byte(0))
)

// describe derives a Layout for a struct type, recursing into nested
// struct fields and tracking the in-progress set of types to detect
// cycles. visiting is scoped to a single top-level Describe call.
func (c *Cache) describe(t reflect.Type, visiting map[reflect.Type]bool) (Layout, error) {
	if t.Kind() != reflect.Struct {
		return Layout{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	if lay, ok := c.lookup(t); ok {
		return lay, nil
	}
	if visiting[t] {
		return Layout{}, fmt.Errorf("%w: %s", ErrCyclicLayout, t)
	}
	visiting[t] = true
	defer delete(visiting, t)

	var props []Property
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, ok := f.Tag.Lookup("chronicle")
		if !ok || tag == "-" {
			continue
		}
		prop, err := c.propertyFor(tag, f.Type, visiting)
		if err != nil {
			return Layout{}, fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
		}
		props = append(props, prop)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })

	lay := Layout{Properties: props, Fingerprint: computeFingerprint(props)}
	c.store(t, lay)
	return lay, nil
}

// propertyFor maps a single Go type onto a Property, recursing for
// composite and nested-struct shapes. name is "" for nested elements
// (list/map/optional members) where only the shape, not a field name,
// matters to the canonical encoding.
func (c *Cache) propertyFor(name string, t reflect.Type, visiting map[reflect.Type]bool) (Property, error) {
	switch {
	case t == uuidType:
		return Property{Name: name, Type: TagUUID}, nil

	case t.Kind() == reflect.Pointer:
		elem, err := c.propertyFor("", t.Elem(), visiting)
		if err != nil {
			return Property{}, err
		}
		return Property{Name: name, Type: TagOptional, Elem: &elem}, nil

	case t.Kind() == reflect.Slice && t.Elem() == byteType:
		return Property{Name: name, Type: TagBytes}, nil

	case t.Kind() == reflect.Slice:
		elem, err := c.propertyFor("", t.Elem(), visiting)
		if err != nil {
			return Property{}, err
		}
		return Property{Name: name, Type: TagList, Elem: &elem}, nil

	case t.Kind() == reflect.Map:
		key, err := c.propertyFor("", t.Key(), visiting)
		if err != nil {
			return Property{}, err
		}
		val, err := c.propertyFor("", t.Elem(), visiting)
		if err != nil {
			return Property{}, err
		}
		return Property{Name: name, Type: TagMap, Key: &key, Val: &val}, nil

	case t.Kind() == reflect.Struct:
		nested, err := c.describe(t, visiting)
		if err != nil {
			return Property{}, err
		}
		return Property{Name: name, Type: TagLayoutRef, Ref: nested.Fingerprint}, nil

	default:
		tag, ok := primitiveTag(t.Kind())
		if !ok {
			return Property{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
		}
		return Property{Name: name, Type: tag}, nil
	}
}

func primitiveTag(k reflect.Kind) (TypeTag, bool) {
	switch k {
	case reflect.Bool:
		return TagBool, true
	case reflect.Int8, reflect.Uint8:
		return TagI8, true
	case reflect.Int16, reflect.Uint16:
		return TagI16, true
	case reflect.Int32, reflect.Uint32:
		return TagI32, true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		return TagI64, true
	case reflect.Float32:
		return TagF32, true
	case reflect.Float64:
		return TagF64, true
	case reflect.String:
		return TagStr, true
	default:
		return 0, false
	}
}

// DescribeValue derives the Layout for v's dynamic type (a struct or pointer to
// struct), caching the result.
func (c *Cache) DescribeValue(v any) (Layout, error) {
	return c.Describe(reflect.TypeOf(v))
}
