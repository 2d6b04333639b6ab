package journal

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

const envelopeHeaderLen = 20 + 8 + 4 + 16

// EncodeEnvelope lays out [20B fingerprint][8B wall_ms][4B logical][16B
// uuid] ahead of body.
func EncodeEnvelope(meta Meta, body []byte) []byte {
	out := make([]byte, envelopeHeaderLen+len(body))
	copy(out[0:20], meta.Fingerprint[:])
	binary.BigEndian.PutUint64(out[20:28], meta.Stamp.WallMS)
	binary.BigEndian.PutUint32(out[28:32], meta.Stamp.Logical)
	copy(out[32:48], meta.ID[:])
	copy(out[48:], body)
	return out
}

// DecodeEnvelope splits a raw record back into its Meta and body.
func DecodeEnvelope(raw []byte) (Meta, []byte, error) {
	if len(raw) < envelopeHeaderLen {
		return Meta{}, nil, fmt.Errorf("journal: envelope shorter than header (%d bytes)", len(raw))
	}
	var meta Meta
	copy(meta.Fingerprint[:], raw[0:20])
	meta.Stamp.WallMS = binary.BigEndian.Uint64(raw[20:28])
	meta.Stamp.Logical = binary.BigEndian.Uint32(raw[28:32])
	id, err := uuid.FromBytes(raw[32:48])
	if err != nil {
		return Meta{}, nil, fmt.Errorf("journal: decode envelope uuid: %w", err)
	}
	meta.ID = id
	return meta, raw[48:], nil
}

// EncodeEventBody prefixes an event's codec-encoded payload with its
// causing command's ID — "causality link events additionally embed a
// 16-byte cause uuid in payload position 0".
func EncodeEventBody(causeCommandID uuid.UUID, payload []byte) []byte {
	body := make([]byte, 16+len(payload))
	copy(body[:16], causeCommandID[:])
	copy(body[16:], payload)
	return body
}

// DecodeEventBody splits an event body back into its cause ID and the
// codec-encoded payload.
func DecodeEventBody(body []byte) (uuid.UUID, []byte, error) {
	if len(body) < 16 {
		return uuid.Nil, nil, fmt.Errorf("journal: event body shorter than cause id (%d bytes)", len(body))
	}
	causeID, err := uuid.FromBytes(body[:16])
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("journal: decode event cause id: %w", err)
	}
	return causeID, body[16:], nil
}

