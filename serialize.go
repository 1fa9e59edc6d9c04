package bloomset

import (
	"encoding/binary"
	"fmt"
)

// Structure kind tags in the serialized header.
const (
	kindStandard byte = 1
	kindCounting byte = 2
)

// Header sizes in bytes. Both forms carry m (8, little-endian uint64),
// k (4, little-endian uint32), and the kind tag (1); the counting form
// adds the counter width (1).
const (
	standardHeaderSize = 13
	countingHeaderSize = 14
)

// maxSerializedM bounds m when loading, so that a corrupt header cannot
// drive a huge allocation before the length check runs.
const maxSerializedM = uint64(1) << 50

// MarshalBinary serializes the filter as the fixed header followed by the
// packed bit array, one little-endian uint64 per word.
//
// The approximate item count is not part of the wire format; a restored
// filter reports a Count of zero.
func (f *Filter) MarshalBinary() ([]byte, error) {
	return marshalWords(f.ix.m, f.ix.k, kindStandard, 0, f.store.words), nil
}

// MarshalBinary serializes the counting filter as the fixed header
// (including the counter width) followed by the packed counter array, one
// little-endian uint64 per word.
func (f *CountingFilter) MarshalBinary() ([]byte, error) {
	return marshalWords(f.ix.m, f.ix.k, kindCounting, f.store.Width(), f.store.words), nil
}

// MarshalBinary serializes a snapshot of the shared filter in the same
// format as Filter.MarshalBinary, so it can be restored with
// UnmarshalBinary. Each word is read atomically, but the snapshot as a
// whole is not atomic with respect to concurrent writers: an Add in
// flight during the call may be captured partially. Quiesce writers first
// if a complete image is required.
func (f *SharedFilter) MarshalBinary() ([]byte, error) {
	return marshalWords(f.ix.m, f.ix.k, kindStandard, 0, f.store.snapshot()), nil
}

// MarshalBinary serializes a snapshot of the shared counting filter in the
// same format as CountingFilter.MarshalBinary, with the same partial
// visibility caveat as SharedFilter.MarshalBinary.
func (f *SharedCountingFilter) MarshalBinary() ([]byte, error) {
	return marshalWords(f.ix.m, f.ix.k, kindCounting, f.store.Width(), f.store.snapshot()), nil
}

func marshalWords(m uint64, k uint32, kind byte, width uint8, words []uint64) []byte {
	hdr := standardHeaderSize
	if kind == kindCounting {
		hdr = countingHeaderSize
	}
	buf := make([]byte, hdr+len(words)*8)
	binary.LittleEndian.PutUint64(buf[0:8], m)
	binary.LittleEndian.PutUint32(buf[8:12], k)
	buf[12] = kind
	if kind == kindCounting {
		buf[13] = width
	}
	off := hdr
	for _, w := range words {
		binary.LittleEndian.PutUint64(buf[off:off+8], w)
		off += 8
	}
	return buf
}

// UnmarshalBinary deserializes a standard filter produced by
// Filter.MarshalBinary or SharedFilter.MarshalBinary. The header is
// validated before the payload is interpreted; a payload whose length does
// not match the declared parameters fails with ErrCorruptData.
//
// Options apply to the restored filter: pass the same WithHasher the
// original was built with, or lookups will probe the wrong positions.
func UnmarshalBinary(data []byte, opts ...Option) (*Filter, error) {
	m, k, kind, _, payload, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	if kind != kindStandard {
		return nil, fmt.Errorf("%w: expected a standard filter, found kind %d", ErrCorruptData, kind)
	}
	if want := wordsForBits(m) * 8; uint64(len(payload)) != want {
		return nil, fmt.Errorf("%w: payload is %d bytes, header declares %d", ErrCorruptData, len(payload), want)
	}

	f, err := NewWithParams(m, k, opts...)
	if err != nil {
		return nil, err
	}
	decodeWords(payload, f.store.words)
	return f, nil
}

// UnmarshalCountingBinary deserializes a counting filter produced by
// CountingFilter.MarshalBinary or SharedCountingFilter.MarshalBinary,
// with the same validation and hasher caveats as UnmarshalBinary.
func UnmarshalCountingBinary(data []byte, opts ...Option) (*CountingFilter, error) {
	m, k, kind, width, payload, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	if kind != kindCounting {
		return nil, fmt.Errorf("%w: expected a counting filter, found kind %d", ErrCorruptData, kind)
	}
	if err := checkCounterWidth(width); err != nil {
		return nil, fmt.Errorf("%w: counter width %d out of range", ErrCorruptData, width)
	}
	if want := newCounterLayout(m, width).numWords() * 8; uint64(len(payload)) != want {
		return nil, fmt.Errorf("%w: payload is %d bytes, header declares %d", ErrCorruptData, len(payload), want)
	}

	f, err := NewCountingWithParams(m, k, width, opts...)
	if err != nil {
		return nil, err
	}
	decodeWords(payload, f.store.words)
	return f, nil
}

func decodeHeader(data []byte) (m uint64, k uint32, kind byte, width uint8, payload []byte, err error) {
	if len(data) < standardHeaderSize {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: %d bytes is shorter than any header", ErrCorruptData, len(data))
	}

	m = binary.LittleEndian.Uint64(data[0:8])
	k = binary.LittleEndian.Uint32(data[8:12])
	kind = data[12]

	if m == 0 || k == 0 {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: header declares m=%d, k=%d", ErrCorruptData, m, k)
	}
	if m > maxSerializedM {
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: header declares implausible m=%d", ErrCorruptData, m)
	}

	switch kind {
	case kindStandard:
		payload = data[standardHeaderSize:]
	case kindCounting:
		if len(data) < countingHeaderSize {
			return 0, 0, 0, 0, nil, fmt.Errorf("%w: counting header truncated", ErrCorruptData)
		}
		width = data[13]
		payload = data[countingHeaderSize:]
	default:
		return 0, 0, 0, 0, nil, fmt.Errorf("%w: unknown filter kind %d", ErrCorruptData, kind)
	}
	return m, k, kind, width, payload, nil
}

func decodeWords(payload []byte, words []uint64) {
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(payload[i*8 : i*8+8])
	}
}
