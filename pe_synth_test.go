// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"encoding/binary"
)

// tHelper is the subset of *testing.T / *testing.F that build needs,
// letting the same synthesizer seed both table-driven tests and the
// fuzz corpus.
type tHelper interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

// No fixture PE binaries ship with this module; every test synthesizes
// its own minimal image via synthPE, built directly from the package's
// own on-disk structs so the byte layout can never drift from what
// parseDOSHeader/parseNTHeader/parseSectionHeader actually expect.

type synthSection struct {
	name             string
	virtualAddress   uint32
	virtualSize      uint32
	pointerToRawData uint32
	sizeOfRawData    uint32
	data             []byte
}

type synthPE struct {
	is64               bool
	machine            uint16
	characteristics    uint16
	subsystem          uint16
	dllCharacteristics uint16
	sizeOfHeaders      uint32
	numberOfRvaAndSizes uint32
	sections           []synthSection
	securityVA         uint32
	securitySize       uint32
	corVA              uint32
	corSize            uint32
	certType           uint16
	certPayload        []byte
	fileSize           uint32
}

func sectionNameBytes(name string) [8]uint8 {
	var out [8]uint8
	copy(out[:], name)
	return out
}

// build assembles the configured image into a byte slice of exactly
// fileSize bytes (zero-padded where no content is specified).
func (c synthPE) build(t tHelper) []byte {
	t.Helper()

	if c.numberOfRvaAndSizes == 0 {
		c.numberOfRvaAndSizes = NumberOfDataDirectories
	}

	header := &bytes.Buffer{}

	dos := ImageDOSHeader{Magic: ImageDOSSignature, AddressOfNewEXEHeader: 64}
	if err := binary.Write(header, binary.LittleEndian, dos); err != nil {
		t.Fatalf("encode dos header: %v", err)
	}

	if err := binary.Write(header, binary.LittleEndian, uint32(ImageNTSignature)); err != nil {
		t.Fatalf("encode nt signature: %v", err)
	}

	var optHeaderSize uint16
	if c.is64 {
		optHeaderSize = uint16(binary.Size(imageOptionalHeader64Fixed{})) + NumberOfDataDirectories*dataDirectoryEntrySize
	} else {
		optHeaderSize = uint16(binary.Size(imageOptionalHeader32Fixed{})) + NumberOfDataDirectories*dataDirectoryEntrySize
	}

	fh := ImageFileHeader{
		Machine:              c.machine,
		NumberOfSections:     uint16(len(c.sections)),
		SizeOfOptionalHeader: optHeaderSize,
		Characteristics:      c.characteristics,
	}
	if err := binary.Write(header, binary.LittleEndian, fh); err != nil {
		t.Fatalf("encode file header: %v", err)
	}

	if c.is64 {
		oh := imageOptionalHeader64Fixed{
			Magic:               ImageNtOptionalHeader64Magic,
			SizeOfHeaders:       c.sizeOfHeaders,
			Subsystem:           c.subsystem,
			DllCharacteristics:  c.dllCharacteristics,
			NumberOfRvaAndSizes: c.numberOfRvaAndSizes,
		}
		if err := binary.Write(header, binary.LittleEndian, oh); err != nil {
			t.Fatalf("encode optional header64: %v", err)
		}
	} else {
		oh := imageOptionalHeader32Fixed{
			Magic:               ImageNtOptionalHeader32Magic,
			SizeOfHeaders:       c.sizeOfHeaders,
			Subsystem:           c.subsystem,
			DllCharacteristics:  c.dllCharacteristics,
			NumberOfRvaAndSizes: c.numberOfRvaAndSizes,
		}
		if err := binary.Write(header, binary.LittleEndian, oh); err != nil {
			t.Fatalf("encode optional header32: %v", err)
		}
	}

	var dataDirs [NumberOfDataDirectories]DataDirectory
	dataDirs[ImageDirectoryEntrySecurity] = DataDirectory{VirtualAddress: c.securityVA, Size: c.securitySize}
	dataDirs[ImageDirectoryEntryCLR] = DataDirectory{VirtualAddress: c.corVA, Size: c.corSize}
	for _, dd := range dataDirs {
		if err := binary.Write(header, binary.LittleEndian, dd); err != nil {
			t.Fatalf("encode data directory: %v", err)
		}
	}

	for _, s := range c.sections {
		sh := ImageSectionHeader{
			Name:             sectionNameBytes(s.name),
			VirtualSize:      s.virtualSize,
			VirtualAddress:   s.virtualAddress,
			SizeOfRawData:    s.sizeOfRawData,
			PointerToRawData: s.pointerToRawData,
		}
		if err := binary.Write(header, binary.LittleEndian, sh); err != nil {
			t.Fatalf("encode section header: %v", err)
		}
	}

	if uint32(header.Len()) > c.sizeOfHeaders {
		t.Fatalf("synthesized headers (%d bytes) exceed configured sizeOfHeaders (%d)", header.Len(), c.sizeOfHeaders)
	}

	full := make([]byte, c.fileSize)
	copy(full, header.Bytes())

	for _, s := range c.sections {
		if s.pointerToRawData == 0 || int(s.pointerToRawData) >= len(full) {
			continue
		}
		copy(full[s.pointerToRawData:], s.data)
	}

	if c.certPayload != nil && int(c.securityVA) <= len(full) {
		certHeader := &bytes.Buffer{}
		hdr := winCertificateHeader{
			Length:          uint32(winCertificateHeaderSize + len(c.certPayload)),
			Revision:        WinCertRevision2_0,
			CertificateType: c.certType,
		}
		if err := binary.Write(certHeader, binary.LittleEndian, hdr); err != nil {
			t.Fatalf("encode win certificate header: %v", err)
		}
		certHeader.Write(c.certPayload)
		copy(full[c.securityVA:], certHeader.Bytes())
	}

	return full
}
