package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"

	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

// Encode writes v (a struct, or pointer to one, matching lay) to w using
// the repository's deterministic wire format. cache resolves nested
// layout<ref> fields by reflecting on the live Go value.
func Encode(w io.Writer, cache *layout.Cache, lay layout.Layout, v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	return encodeStruct(w, cache, lay.Properties, rv)
}

func encodeStruct(w io.Writer, cache *layout.Cache, props []layout.Property, rv reflect.Value) error {
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: expected struct, got %s", ErrInvariantViolated, rv.Kind())
	}
	for _, p := range props {
		fv, ok := fieldByTag(rv, p.Name)
		if !ok {
			return fmt.Errorf("%w: no field tagged chronicle:%q on %s", ErrInvariantViolated, p.Name, rv.Type())
		}
		if err := encodeValue(w, cache, p, fv); err != nil {
			return err
		}
	}
	return nil
}

func fieldByTag(rv reflect.Value, name string) (reflect.Value, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, ok := f.Tag.Lookup("chronicle"); ok && tag == name {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func encodeValue(w io.Writer, cache *layout.Cache, p layout.Property, rv reflect.Value) error {
	switch p.Type {
	case layout.TagBool:
		b := byte(0)
		if rv.Bool() {
			b = 1
		}
		return writeRaw(w, []byte{b})

	case layout.TagI8:
		return encodeInt(w, 1, rv)
	case layout.TagI16:
		return encodeInt(w, 2, rv)
	case layout.TagI32:
		return encodeInt(w, 4, rv)
	case layout.TagI64:
		return encodeInt(w, 8, rv)

	case layout.TagF32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], math.Float32bits(float32(rv.Float())))
		return writeRaw(w, buf[:])
	case layout.TagF64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(rv.Float()))
		return writeRaw(w, buf[:])

	case layout.TagStr:
		return encodeVarBytes(w, []byte(rv.String()))

	case layout.TagUUID:
		id := rv.Interface().(uuid.UUID)
		return writeRaw(w, id[:])

	case layout.TagBytes:
		b, _ := rv.Interface().([]byte)
		return encodeVarBytes(w, b)

	case layout.TagList:
		n := rv.Len()
		if err := writeVarUint(w, uint64(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := encodeValue(w, cache, *p.Elem, rv.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case layout.TagMap:
		return encodeMap(w, cache, p, rv)

	case layout.TagOptional:
		if rv.Kind() != reflect.Pointer {
			return fmt.Errorf("%w: optional property backed by non-pointer field", ErrInvariantViolated)
		}
		if rv.IsNil() {
			return writeRaw(w, []byte{0})
		}
		if err := writeRaw(w, []byte{1}); err != nil {
			return err
		}
		return encodeValue(w, cache, *p.Elem, rv.Elem())

	case layout.TagLayoutRef:
		childLay, err := cache.Describe(rv.Type())
		if err != nil {
			return err
		}
		if childLay.Fingerprint != p.Ref {
			return fmt.Errorf("%w: nested value's layout fingerprint drifted from the declared reference", ErrInvariantViolated)
		}
		if err := writeRaw(w, childLay.Fingerprint[:]); err != nil {
			return err
		}
		return encodeStruct(w, cache, childLay.Properties, rv)

	default:
		return fmt.Errorf("%w: unhandled type tag %s", ErrInvariantViolated, p.Type)
	}
}

func encodeMap(w io.Writer, cache *layout.Cache, p layout.Property, rv reflect.Value) error {
	keys := rv.MapKeys()
	type pair struct {
		keyBytes []byte
		valBytes []byte
	}
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		var kb, vb buffer
		if err := encodeValue(&kb, cache, *p.Key, k); err != nil {
			return err
		}
		if err := encodeValue(&vb, cache, *p.Val, rv.MapIndex(k)); err != nil {
			return err
		}
		pairs = append(pairs, pair{keyBytes: kb.b, valBytes: vb.b})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return string(pairs[i].keyBytes) < string(pairs[j].keyBytes)
	})
	if err := writeVarUint(w, uint64(len(pairs))); err != nil {
		return err
	}
	for _, pr := range pairs {
		if err := writeRaw(w, pr.keyBytes); err != nil {
			return err
		}
		if err := writeRaw(w, pr.valBytes); err != nil {
			return err
		}
	}
	return nil
}

func encodeInt(w io.Writer, width int, rv reflect.Value) error {
	var u uint64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		u = uint64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u = rv.Uint()
	default:
		return fmt.Errorf("%w: expected integer kind, got %s", ErrInvariantViolated, rv.Kind())
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)
	return writeRaw(w, buf[8-width:])
}

func encodeVarBytes(w io.Writer, b []byte) error {
	if err := writeVarUint(w, uint64(len(b))); err != nil {
		return err
	}
	return writeRaw(w, b)
}

func writeVarUint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return writeRaw(w, buf[:n])
}

func writeRaw(w io.Writer, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

// buffer is a minimal io.Writer used to pre-serialize map keys/values so
// they can be compared and sorted before being written to the real
// destination.
type buffer struct{ b []byte }

func (b *buffer) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}
