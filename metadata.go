// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// translateVirtualAddress resolves an RVA/size pair to a file offset via
// the section table: the first section header satisfying
// virtualAddress <= rva && rva+size < virtualAddress+virtualSize yields
// pointerToRawData + (rva - virtualAddress).
//
// The strict less-than at the upper bound rejects a directory that ends
// exactly at the section boundary. This mirrors saferwall/pe's own
// boundary check rather than the more permissive <=; kept for behavioral
// fidelity since the boolean presence outcome it feeds is unaffected in
// practice.
func translateVirtualAddress(sections []ImageSectionHeader, rva, size uint32) uint32 {
	for _, sh := range sections {
		if sh.VirtualAddress <= rva && rva+size < sh.VirtualAddress+sh.VirtualSize {
			return sh.PointerToRawData + (rva - sh.VirtualAddress)
		}
	}
	return 0
}

// hasEmbeddedMetadata reports whether the COM Descriptor directory
// resolves to a non-zero file offset, signalling a managed (.NET) image.
// The body of the CLR header is never parsed.
func (f *File) hasEmbeddedMetadata() bool {
	if f.corIDD.VirtualAddress == 0 && f.corIDD.Size == 0 {
		return false
	}
	return translateVirtualAddress(f.sections, f.corIDD.VirtualAddress, f.corIDD.Size) != 0
}
