package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

// Decode reads a value encoded by Encode into target, which must be a
// non-nil pointer to a struct matching lay. cache resolves nested
// layout<ref> fields by their persisted fingerprint.
func Decode(r io.Reader, cache *layout.Cache, lay layout.Layout, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: Decode target must be a non-nil pointer", ErrInvariantViolated)
	}
	return decodeStruct(r, cache, lay.Properties, rv.Elem())
}

func decodeStruct(r io.Reader, cache *layout.Cache, props []layout.Property, rv reflect.Value) error {
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: expected struct target, got %s", ErrInvariantViolated, rv.Kind())
	}
	for _, p := range props {
		fv, ok := fieldByTag(rv, p.Name)
		if !ok {
			return fmt.Errorf("%w: no field tagged chronicle:%q on %s", ErrInvariantViolated, p.Name, rv.Type())
		}
		if err := decodeValue(r, cache, p, fv); err != nil {
			return err
		}
	}
	return nil
}

func decodeValue(r io.Reader, cache *layout.Cache, p layout.Property, rv reflect.Value) error {
	switch p.Type {
	case layout.TagBool:
		b, err := readByte(r)
		if err != nil {
			return err
		}
		if b > 1 {
			return fmt.Errorf("%w: bool byte must be 0 or 1, got %d", ErrInvariantViolated, b)
		}
		rv.SetBool(b == 1)
		return nil

	case layout.TagI8:
		return decodeInt(r, 1, rv)
	case layout.TagI16:
		return decodeInt(r, 2, rv)
	case layout.TagI32:
		return decodeInt(r, 4, rv)
	case layout.TagI64:
		return decodeInt(r, 8, rv)

	case layout.TagF32:
		buf, err := readN(r, 4)
		if err != nil {
			return err
		}
		rv.SetFloat(float64(math.Float32frombits(binary.BigEndian.Uint32(buf))))
		return nil
	case layout.TagF64:
		buf, err := readN(r, 8)
		if err != nil {
			return err
		}
		rv.SetFloat(math.Float64frombits(binary.BigEndian.Uint64(buf)))
		return nil

	case layout.TagStr:
		b, err := decodeVarBytes(r)
		if err != nil {
			return err
		}
		rv.SetString(string(b))
		return nil

	case layout.TagUUID:
		buf, err := readN(r, 16)
		if err != nil {
			return err
		}
		id, err := uuid.FromBytes(buf)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolated, err)
		}
		rv.Set(reflect.ValueOf(id))
		return nil

	case layout.TagBytes:
		b, err := decodeVarBytes(r)
		if err != nil {
			return err
		}
		rv.SetBytes(b)
		return nil

	case layout.TagList:
		n, err := readVarUint(r)
		if err != nil {
			return err
		}
		slice := reflect.MakeSlice(rv.Type(), int(n), int(n))
		for i := 0; i < int(n); i++ {
			if err := decodeValue(r, cache, *p.Elem, slice.Index(i)); err != nil {
				return err
			}
		}
		rv.Set(slice)
		return nil

	case layout.TagMap:
		return decodeMap(r, cache, p, rv)

	case layout.TagOptional:
		b, err := readByte(r)
		if err != nil {
			return err
		}
		switch b {
		case 0:
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		case 1:
			elem := reflect.New(rv.Type().Elem())
			if err := decodeValue(r, cache, *p.Elem, elem.Elem()); err != nil {
				return err
			}
			rv.Set(elem)
			return nil
		default:
			return fmt.Errorf("%w: optional presence byte must be 0 or 1, got %d", ErrInvariantViolated, b)
		}

	case layout.TagLayoutRef:
		buf, err := readN(r, 20)
		if err != nil {
			return err
		}
		var fp layout.Fingerprint
		copy(fp[:], buf)
		childLay, ok := cache.ByFingerprint(fp)
		if !ok {
			describedLay, descErr := cache.Describe(rv.Type())
			if descErr != nil || describedLay.Fingerprint != fp {
				return ErrUnknownFingerprint
			}
			childLay = describedLay
		}
		return decodeStruct(r, cache, childLay.Properties, rv)

	default:
		return fmt.Errorf("%w: unhandled type tag %s", ErrInvariantViolated, p.Type)
	}
}

func decodeMap(r io.Reader, cache *layout.Cache, p layout.Property, rv reflect.Value) error {
	n, err := readVarUint(r)
	if err != nil {
		return err
	}
	m := reflect.MakeMapWithSize(rv.Type(), int(n))
	for i := 0; i < int(n); i++ {
		k := reflect.New(rv.Type().Key()).Elem()
		if err := decodeValue(r, cache, *p.Key, k); err != nil {
			return err
		}
		v := reflect.New(rv.Type().Elem()).Elem()
		if err := decodeValue(r, cache, *p.Val, v); err != nil {
			return err
		}
		m.SetMapIndex(k, v)
	}
	rv.Set(m)
	return nil
}

func decodeInt(r io.Reader, width int, rv reflect.Value) error {
	buf, err := readN(r, width)
	if err != nil {
		return err
	}
	var padded [8]byte
	copy(padded[8-width:], buf)
	u := binary.BigEndian.Uint64(padded[:])
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(u)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		shift := uint(64 - width*8)
		rv.SetInt(int64(u<<shift) >> shift)
	default:
		return fmt.Errorf("%w: expected integer kind, got %s", ErrInvariantViolated, rv.Kind())
	}
	return nil
}

func decodeVarBytes(r io.Reader) ([]byte, error) {
	n, err := readVarUint(r)
	if err != nil {
		return nil, err
	}
	return readN(r, int(n))
}

func readVarUint(r io.Reader) (uint64, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReaderWrap{r}
	}
	v, err := binary.ReadUvarint(br)
	if err != nil {
		if err == io.EOF {
			return 0, ErrTruncated
		}
		return 0, err
	}
	return v, nil
}

func readByte(r io.Reader) (byte, error) {
	buf, err := readN(r, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readN(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return buf, nil
}

// byteReaderWrap adapts an io.Reader without ReadByte to io.ByteReader,
// for the varint decoder.
type byteReaderWrap struct{ io.Reader }

func (b *byteReaderWrap) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.Reader, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
