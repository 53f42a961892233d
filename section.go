// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "sort"

// sectionHeaderSize is the fixed on-disk size of IMAGE_SECTION_HEADER.
const sectionHeaderSize = 40

// ImageSectionHeader describes one entry of the section table, with all
// fields of the 40-byte on-disk layout. Only VirtualAddress, VirtualSize,
// PointerToRawData and SizeOfRawData are consumed by the hash-range
// planner and the RVA translator.
type ImageSectionHeader struct {
	Name                 [8]uint8
	VirtualSize          uint32 `json:"virtual_size"`
	VirtualAddress       uint32 `json:"virtual_address"`
	SizeOfRawData        uint32 `json:"size_of_raw_data"`
	PointerToRawData     uint32 `json:"pointer_to_raw_data"`
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

// parseSectionHeader reads the section table, which immediately follows the
// optional header at the offset the file header declares.
func (f *File) parseSectionHeader() error {
	offset := f.optHeaderOffset + uint64(f.fileHeader.SizeOfOptionalHeader)

	sections := make([]ImageSectionHeader, 0, f.fileHeader.NumberOfSections)
	for i := uint16(0); i < f.fileHeader.NumberOfSections; i++ {
		var sh ImageSectionHeader
		if err := f.r.Struct(&sh, offset, sectionHeaderSize); err != nil {
			return asTruncated(err)
		}
		sections = append(sections, sh)
		offset += sectionHeaderSize
	}

	f.sections = sections
	return nil
}

// sectionName returns the section's 8-byte Name field as a Go string,
// trimmed at the first NUL. Long names (stored as a string-table offset
// starting with '/') are returned verbatim; this module never resolves
// the COFF string table since no component consumes it.
func sectionName(sh ImageSectionHeader) string {
	n := bytesIndexZero(sh.Name[:])
	return string(sh.Name[:n])
}

func bytesIndexZero(b []uint8) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}

// sectionsByPointerToRawData returns a copy of sections sorted ascending by
// PointerToRawData, stable for equal keys, as the Authenticode recipe
// requires for Step B of the hash-range plan.
func sectionsByPointerToRawData(sections []ImageSectionHeader) []ImageSectionHeader {
	sorted := make([]ImageSectionHeader, len(sections))
	copy(sorted, sections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PointerToRawData < sorted[j].PointerToRawData
	})
	return sorted
}
