// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"encoding/binary"

	"github.com/authcheck/pe/internal/rangeset"
)

// ImageFileHeader is the COFF file header (IMAGE_FILE_HEADER), 20 bytes.
type ImageFileHeader struct {
	Machine              uint16 `json:"machine"`
	NumberOfSections     uint16 `json:"number_of_sections"`
	TimeDateStamp        uint32 `json:"time_date_stamp"`
	PointerToSymbolTable uint32 `json:"pointer_to_symbol_table"`
	NumberOfSymbols      uint32 `json:"number_of_symbols"`
	SizeOfOptionalHeader uint16 `json:"size_of_optional_header"`
	Characteristics      uint16 `json:"characteristics"`
}

// imageOptionalHeader32Fixed is the PE32 optional header up to and
// including NumberOfRvaAndSizes, 96 bytes. The DataDirectory array that
// follows is read separately since its effective length depends on the
// value of NumberOfRvaAndSizes.
type imageOptionalHeader32Fixed struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	BaseOfData                  uint32
	ImageBase                   uint32
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint32
	SizeOfStackCommit           uint32
	SizeOfHeapReserve           uint32
	SizeOfHeapCommit            uint32
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
}

// imageOptionalHeader64Fixed is the PE32+ optional header up to and
// including NumberOfRvaAndSizes, 112 bytes.
type imageOptionalHeader64Fixed struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	ImageBase                   uint64
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint64
	SizeOfStackCommit           uint64
	SizeOfHeapReserve           uint64
	SizeOfHeapCommit            uint64
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
}

// DataDirectory is one (virtualAddress, size) entry of the optional
// header's directory array.
type DataDirectory struct {
	VirtualAddress uint32 `json:"virtual_address"`
	Size           uint32 `json:"size"`
}

// Fixed offsets and sizes within the optional header. The DataDirectory
// array begins where the variant's fixed portion ends (96 bytes for PE32,
// 112 for PE32+).
const (
	// checkSumFieldOffset is the CheckSum field's offset from the start of
	// the optional header; identical in both PE32 and PE32+.
	checkSumFieldOffset = 64

	dataDirectoryEntrySize = 8
)

// parseNTHeader parses IMAGE_NT_HEADERS: the PE signature, the COFF file
// header, and the optional header (PE32 or PE32+), recording the on-stream
// ranges of the CheckSum field and the SECURITY data-directory entry as a
// side effect.
func (f *File) parseNTHeader() error {
	ntHeaderOffset := uint64(f.dosHeader.AddressOfNewEXEHeader)

	signature, err := f.r.Uint32(ntHeaderOffset)
	if err != nil {
		return asTruncated(err)
	}
	if signature != ImageNTSignature {
		return ErrNotPE
	}

	fileHeaderOffset := ntHeaderOffset + 4
	fileHeaderSize := uint64(binary.Size(f.fileHeader))
	if err := f.r.Struct(&f.fileHeader, fileHeaderOffset, fileHeaderSize); err != nil {
		return asTruncated(err)
	}

	optHeaderOffset := fileHeaderOffset + fileHeaderSize
	magic, err := f.r.Uint16(optHeaderOffset)
	if err != nil {
		return asTruncated(err)
	}

	f.checkSumRange = rangeset.StreamRange{
		Position: optHeaderOffset + checkSumFieldOffset,
		Size:     4,
	}

	var fixedSize uint64
	var numberOfRvaAndSizes uint32

	switch magic {
	case ImageNtOptionalHeader64Magic:
		var oh imageOptionalHeader64Fixed
		fixedSize = uint64(binary.Size(oh))
		if err := f.r.Struct(&oh, optHeaderOffset, fixedSize); err != nil {
			return asTruncated(err)
		}
		f.is64 = true
		f.sizeOfHeaders = uint64(oh.SizeOfHeaders)
		f.subsystem = oh.Subsystem
		f.dllCharacteristics = oh.DllCharacteristics
		numberOfRvaAndSizes = oh.NumberOfRvaAndSizes
	case ImageNtOptionalHeader32Magic:
		var oh imageOptionalHeader32Fixed
		fixedSize = uint64(binary.Size(oh))
		if err := f.r.Struct(&oh, optHeaderOffset, fixedSize); err != nil {
			return asTruncated(err)
		}
		f.is64 = false
		f.sizeOfHeaders = uint64(oh.SizeOfHeaders)
		f.subsystem = oh.Subsystem
		f.dllCharacteristics = oh.DllCharacteristics
		numberOfRvaAndSizes = oh.NumberOfRvaAndSizes
	default:
		return ErrUnsupportedOptionalHeader
	}

	if uint64(f.fileHeader.SizeOfOptionalHeader) < fixedSize {
		return ErrUnsupportedOptionalHeader
	}

	dataDirOffset := optHeaderOffset + fixedSize
	f.securityDataDirectoryRange = rangeset.StreamRange{
		Position: dataDirOffset + uint64(ImageDirectoryEntrySecurity)*dataDirectoryEntrySize,
		Size:     dataDirectoryEntrySize,
	}

	// numberOfRvaAndSizes is a lower bound on directory slots, but never a
	// license to read more than 16 entries' worth of bytes from the
	// stream: read min(declared, 16) directly, then zero-fill the rest.
	n := numberOfRvaAndSizes
	if n > NumberOfDataDirectories {
		n = NumberOfDataDirectories
	}

	var dataDirectory [NumberOfDataDirectories]DataDirectory
	for i := uint32(0); i < n; i++ {
		pos := dataDirOffset + uint64(i)*dataDirectoryEntrySize
		var dd DataDirectory
		if err := f.r.Struct(&dd, pos, dataDirectoryEntrySize); err != nil {
			return asTruncated(err)
		}
		dataDirectory[i] = dd
	}

	f.securityIDD = dataDirectory[ImageDirectoryEntrySecurity]
	f.corIDD = dataDirectory[ImageDirectoryEntryCLR]

	f.machine = f.fileHeader.Machine
	f.characteristics = f.fileHeader.Characteristics
	f.optHeaderOffset = optHeaderOffset

	return nil
}
