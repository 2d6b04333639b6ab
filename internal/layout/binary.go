package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MarshalBinary serializes the full property tree, not just its canonical
// hash — this is how a Layout itself travels inside an
// EntityLayoutIntroduced record, so a restarted process (or a peer that
// has never seen this Go type) can decode values against it without
// access to the original struct.
func (l Layout) MarshalBinary() ([]byte, error) {
	var out []byte
	out = appendVarUint(out, uint64(len(l.Properties)))
	for _, p := range l.Properties {
		out = marshalProperty(out, p)
	}
	return out, nil
}

// UnmarshalBinary reconstructs a Layout from MarshalBinary's output,
// recomputing its fingerprint rather than trusting an embedded value.
func (l *Layout) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return fmt.Errorf("layout: unmarshal property count: %w", err)
	}
	props := make([]Property, 0, n)
	for i := uint64(0); i < n; i++ {
		p, err := unmarshalProperty(r)
		if err != nil {
			return fmt.Errorf("layout: unmarshal property %d: %w", i, err)
		}
		props = append(props, p)
	}
	l.Properties = props
	l.Fingerprint = computeFingerprint(props)
	return nil
}

func marshalProperty(out []byte, p Property) []byte {
	out = appendVarlenString(out, p.Name)
	out = append(out, byte(p.Type))
	switch p.Type {
	case TagList, TagOptional:
		out = marshalProperty(out, *p.Elem)
	case TagMap:
		out = marshalProperty(out, *p.Key)
		out = marshalProperty(out, *p.Val)
	case TagLayoutRef:
		out = append(out, p.Ref[:]...)
	}
	return out
}

func unmarshalProperty(r *bytes.Reader) (Property, error) {
	name, err := readVarlenString(r)
	if err != nil {
		return Property{}, err
	}
	tagByte, err := r.ReadByte()
	if err != nil {
		return Property{}, err
	}
	p := Property{Name: name, Type: TypeTag(tagByte)}
	switch p.Type {
	case TagList, TagOptional:
		elem, err := unmarshalProperty(r)
		if err != nil {
			return Property{}, err
		}
		p.Elem = &elem
	case TagMap:
		key, err := unmarshalProperty(r)
		if err != nil {
			return Property{}, err
		}
		val, err := unmarshalProperty(r)
		if err != nil {
			return Property{}, err
		}
		p.Key, p.Val = &key, &val
	case TagLayoutRef:
		var ref Fingerprint
		if _, err := io.ReadFull(r, ref[:]); err != nil {
			return Property{}, err
		}
		p.Ref = ref
	}
	return p, nil
}

func appendVarUint(out []byte, v uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return append(out, buf[:n]...)
}

func readVarlenString(r *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
