// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "github.com/authcheck/pe/internal/rangeset"

// HashRangePlan is the ordered, non-overlapping, coalesced sequence of
// byte ranges that contribute to the image digest, plus two reserved
// numeric slots carried for format-family uniformity with the sibling
// Mach-O/ELF hash-range planners; both are always zero for PE.
type HashRangePlan struct {
	Ranges    []rangeset.StreamRange `json:"ranges"`
	Reserved0 uint64                 `json:"reserved0"`
	Reserved1 uint64                 `json:"reserved1"`
}

// computeHashRangePlan implements Microsoft's Authenticode "PE hash"
// recipe: the ordered, coalesced set of byte ranges that must be fed to
// the digest, excluding the image checksum, the Certificate Table
// directory entry, and the attached certificate blob itself.
func (f *File) computeHashRangePlan() HashRangePlan {
	// Step A: header ranges, excluding the checksum field and the
	// SECURITY directory entry from [0, sizeOfHeaders).
	excluded := []rangeset.StreamRange{f.checkSumRange, f.securityDataDirectoryRange}
	rangeset.SortByPosition(excluded)
	plan := rangeset.Invert(f.sizeOfHeaders, excluded)

	// Step B: section bodies, sorted by on-disk offset. S is the end of
	// the last range appended by this step, not a running max over all
	// sections: an overlapping, malformed section table must still
	// reproduce the recipe's literal definition of S.
	s := f.sizeOfHeaders
	sorted := sectionsByPointerToRawData(f.sections)
	for _, sh := range sorted {
		if sh.PointerToRawData == 0 || sh.SizeOfRawData == 0 {
			f.logger.Debugf("skipping section %q: pointerToRawData=%d sizeOfRawData=%d", sectionName(sh), sh.PointerToRawData, sh.SizeOfRawData)
			continue
		}
		r := rangeset.StreamRange{Position: uint64(sh.PointerToRawData), Size: uint64(sh.SizeOfRawData)}
		plan = append(plan, r)
		s = r.End()
	}

	// Step C: trailing data, driven by the Certificate Table directory
	// entry (whose VirtualAddress is a file offset, not an RVA).
	fileSize := f.size
	certStart := uint64(f.securityIDD.VirtualAddress)
	certSize := uint64(f.securityIDD.Size)

	switch {
	case certStart == 0 || certSize == 0:
		plan = appendNonEmpty(plan, s, fileSize)
	case certStart >= fileSize:
		f.logger.Warnf("security directory virtualAddress=%d lies at or past end of file (size=%d)", certStart, fileSize)
		plan = appendNonEmpty(plan, s, fileSize)
	case certStart+certSize < fileSize:
		plan = appendNonEmpty(plan, s, certStart)
		plan = appendNonEmpty(plan, certStart+certSize, fileSize)
	default: // certStart < fileSize && certStart+certSize >= fileSize
		plan = appendNonEmpty(plan, s, certStart)
	}

	// Step D is exposed via hasSignature, computed independently in Parse.

	// Step E: coalesce. The list is already in stream order by
	// construction; do not re-sort.
	return HashRangePlan{Ranges: rangeset.MergeNeighbors(plan)}
}

// hasEmbeddedSignature reports Step D's signature-state flag: a
// Certificate Table entry that both exists and lies entirely in-file.
func (f *File) hasEmbeddedSignature() bool {
	certStart := uint64(f.securityIDD.VirtualAddress)
	certSize := uint64(f.securityIDD.Size)
	return certStart != 0 && certSize != 0 && certStart+certSize <= f.size
}

func appendNonEmpty(ranges []rangeset.StreamRange, start, end uint64) []rangeset.StreamRange {
	if end <= start {
		return ranges
	}
	return append(ranges, rangeset.StreamRange{Position: start, Size: end - start})
}
