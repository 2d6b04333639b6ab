package layout

import (
	"encoding/binary"
	"sort"
)

// canonicalBytes serializes a property list deterministically: names
// sorted lexicographically, each property's type tag and (recursively) its
// composite shape, with nested layouts referenced by their own
// fingerprint rather than inlined. Two property lists with the same
// canonical bytes always produce the same Fingerprint, and are
// considered the same schema.
func canonicalBytes(props []Property) []byte {
	sorted := make([]Property, len(props))
	copy(sorted, props)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var out []byte
	for _, p := range sorted {
		out = appendVarlenString(out, p.Name)
		out = append(out, byte(p.Type))
		out = appendPropertyShape(out, p)
	}
	return out
}

func appendPropertyShape(out []byte, p Property) []byte {
	switch p.Type {
	case TagList, TagOptional:
		if p.Elem != nil {
			out = append(out, byte(p.Elem.Type))
			out = appendPropertyShape(out, *p.Elem)
		}
	case TagMap:
		if p.Key != nil {
			out = append(out, byte(p.Key.Type))
			out = appendPropertyShape(out, *p.Key)
		}
		if p.Val != nil {
			out = append(out, byte(p.Val.Type))
			out = appendPropertyShape(out, *p.Val)
		}
	case TagLayoutRef:
		out = append(out, p.Ref[:]...)
	}
	return out
}

func appendVarlenString(out []byte, s string) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	out = append(out, lenBuf[:n]...)
	return append(out, s...)
}
