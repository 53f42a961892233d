// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package streamio provides positioned, bounds-checked, little-endian
// reads over a byte buffer. It generalizes the ReadUint16/ReadUint32/
// ReadUint64/structUnpack helpers of saferwall/pe's helper.go into a
// standalone reader usable by both the mmap-backed and in-memory
// File variants.
package streamio

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when fewer bytes remain in the buffer than
// the read requires.
var ErrTruncated = errors.New("streamio: truncated read")

// Reader performs bounds-checked little-endian reads over data. It does
// not copy data; callers must not mutate the slice for the Reader's
// lifetime.
type Reader struct {
	data []byte
}

// New wraps data for positioned reads.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the size of the underlying buffer.
func (r *Reader) Len() uint64 {
	return uint64(len(r.data))
}

// Bytes returns the n bytes starting at position, or ErrTruncated if
// they are not all present.
func (r *Reader) Bytes(position, n uint64) ([]byte, error) {
	total := position + n
	// Integer overflow or a request that runs past the end of data.
	if total < position {
		return nil, ErrTruncated
	}
	if position > r.Len() || total > r.Len() {
		return nil, ErrTruncated
	}
	return r.data[position:total], nil
}

// Uint16 reads a little-endian uint16 at position.
func (r *Reader) Uint16(position uint64) (uint16, error) {
	b, err := r.Bytes(position, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads a little-endian uint32 at position.
func (r *Reader) Uint32(position uint64) (uint32, error) {
	b, err := r.Bytes(position, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads a little-endian uint64 at position.
func (r *Reader) Uint64(position uint64) (uint64, error) {
	b, err := r.Bytes(position, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Struct decodes size bytes at position into iface using little-endian
// field order, the same contract as saferwall/pe's structUnpack:
// iface must be a pointer to a fixed-layout struct of plain integer
// fields (no padding-sensitive types).
func (r *Reader) Struct(iface interface{}, position, size uint64) error {
	b, err := r.Bytes(position, size)
	if err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, iface)
}
