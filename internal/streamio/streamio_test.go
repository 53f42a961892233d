// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package streamio

import "testing"

func TestUint16(t *testing.T) {
	r := New([]byte{0x4D, 0x5A, 0x00})
	got, err := r.Uint16(0)
	if err != nil {
		t.Fatalf("Uint16(0) failed: %v", err)
	}
	if got != 0x5A4D {
		t.Errorf("Uint16(0) = %#x, want 0x5A4D", got)
	}
}

func TestUint32TruncatedRead(t *testing.T) {
	r := New([]byte{1, 2, 3})
	if _, err := r.Uint32(0); err != ErrTruncated {
		t.Errorf("Uint32 on a 3-byte buffer = %v, want ErrTruncated", err)
	}
}

func TestBytesOutOfBounds(t *testing.T) {
	r := New(make([]byte, 10))
	if _, err := r.Bytes(8, 4); err != ErrTruncated {
		t.Errorf("Bytes(8, 4) on a 10-byte buffer = %v, want ErrTruncated", err)
	}
	if _, err := r.Bytes(10, 0); err != nil {
		t.Errorf("Bytes(10, 0) at exact end = %v, want nil", err)
	}
}

func TestStruct(t *testing.T) {
	type pair struct {
		A uint16
		B uint32
	}
	data := []byte{0x01, 0x00, 0x02, 0x00, 0x00, 0x00}
	r := New(data)
	var p pair
	if err := r.Struct(&p, 0, 6); err != nil {
		t.Fatalf("Struct failed: %v", err)
	}
	if p.A != 1 || p.B != 2 {
		t.Errorf("Struct decoded %+v, want {A:1 B:2}", p)
	}
}
