// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// ImageDOSHeader represents the DOS stub of a PE. Every PE file begins with
// a small MS-DOS stub whose only load-bearing field for this module is
// AddressOfNewEXEHeader (e_lfanew), the offset of the NT headers.
type ImageDOSHeader struct {
	Magic                    uint16 `json:"magic"`
	BytesOnLastPageOfFile    uint16 `json:"bytes_on_last_page_of_file"`
	PagesInFile              uint16 `json:"pages_in_file"`
	Relocations              uint16 `json:"relocations"`
	SizeOfHeader             uint16 `json:"size_of_header"`
	MinExtraParagraphsNeeded uint16 `json:"min_extra_paragraphs_needed"`
	MaxExtraParagraphsNeeded uint16 `json:"max_extra_paragraphs_needed"`
	InitialSS                uint16 `json:"initial_ss"`
	InitialSP                uint16 `json:"initial_sp"`
	Checksum                 uint16 `json:"checksum"`
	InitialIP                uint16 `json:"initial_ip"`
	InitialCS                uint16 `json:"initial_cs"`
	AddressOfRelocationTable uint16 `json:"address_of_relocation_table"`
	OverlayNumber            uint16 `json:"overlay_number"`
	ReservedWords1           [4]uint16
	OEMIdentifier            uint16 `json:"oem_identifier"`
	OEMInformation           uint16 `json:"oem_information"`
	ReservedWords2           [10]uint16
	AddressOfNewEXEHeader    uint32 `json:"address_of_new_exe_header"`
}

// parseDOSHeader reads and validates the 64-byte DOS header at position 0.
func (f *File) parseDOSHeader() error {
	size := uint64(binary.Size(f.dosHeader))
	if err := f.r.Struct(&f.dosHeader, 0, size); err != nil {
		return asTruncated(err)
	}

	if f.dosHeader.Magic != ImageDOSSignature {
		return ErrNotPE
	}

	return nil
}
