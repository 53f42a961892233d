// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "testing"

func TestTranslateVirtualAddress(t *testing.T) {
	sections := []ImageSectionHeader{
		{VirtualAddress: 0x1000, VirtualSize: 0x200, PointerToRawData: 0x400},
	}

	tests := []struct {
		name string
		rva  uint32
		size uint32
		want uint32
	}{
		{"inside section", 0x1010, 0x10, 0x410},
		{"at section start", 0x1000, 0x10, 0x400},
		// Strict '<' at the upper bound (spec §9): a directory ending
		// exactly at the section boundary is rejected, not translated.
		{"ends exactly at section boundary", 0x1000, 0x200, 0},
		{"one byte inside boundary", 0x1000, 0x1FF, 0x400},
		{"outside any section", 0x5000, 0x10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateVirtualAddress(sections, tt.rva, tt.size)
			if got != tt.want {
				t.Errorf("translateVirtualAddress(%#x, %#x) = %#x, want %#x", tt.rva, tt.size, got, tt.want)
			}
		})
	}
}

func TestHasEmbeddedMetadata(t *testing.T) {
	cfg := synthPE{
		sizeOfHeaders: 0x400,
		fileSize:      0x600,
		sections: []synthSection{
			{name: ".text", virtualAddress: 0x1000, virtualSize: 0x200, pointerToRawData: 0x400, sizeOfRawData: 0x200, data: []byte("x")},
		},
	}

	t.Run("no COM directory", func(t *testing.T) {
		facts := mustParse(t, cfg.build(t), ModeDefault)
		if facts.HasMetadata {
			t.Errorf("HasMetadata = true, want false")
		}
	})

	t.Run("COM directory resolves inside section", func(t *testing.T) {
		with := cfg
		with.corVA = 0x1010
		with.corSize = 0x48
		facts := mustParse(t, with.build(t), ModeDefault)
		if !facts.HasMetadata {
			t.Errorf("HasMetadata = false, want true")
		}
	})

	t.Run("COM directory outside any section", func(t *testing.T) {
		with := cfg
		with.corVA = 0x9000
		with.corSize = 0x48
		facts := mustParse(t, with.build(t), ModeDefault)
		if facts.HasMetadata {
			t.Errorf("HasMetadata = true, want false")
		}
	})
}
