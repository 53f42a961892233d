// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package pe extracts Authenticode-style code-signing information from
// Portable Executable binaries and computes the precise byte ranges over
// which the image's cryptographic digest must be taken.
package pe

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/authcheck/pe/internal/log"
	"github.com/authcheck/pe/internal/rangeset"
	"github.com/authcheck/pe/internal/streamio"
)

// Mode controls how much work Parse does beyond structural parsing and
// hash-range planning.
type Mode uint32

const (
	// ModeDefault parses structure and computes the hash range plan; it
	// does not read the signature blob.
	ModeDefault Mode = 0

	// ModeReadCodeSignature additionally extracts CMSSignatureBlob when a
	// Certificate Table entry is present.
	ModeReadCodeSignature Mode = 1 << 0
)

// defaultMaxCertificateChainBytes bounds how many bytes extractSignature
// will read for a single WIN_CERTIFICATE payload when
// Options.MaxCertificateChainBytes is left at its zero value.
const defaultMaxCertificateChainBytes = 16 << 20 // 16 MiB

// Options configures Open/OpenBytes.
type Options struct {
	// Logger receives diagnostic output during parsing. Defaults to a
	// stderr logger filtered to warnings and above.
	Logger log.Logger

	// MaxCertificateChainBytes caps how many bytes extractSignature will
	// read for the first WIN_CERTIFICATE payload, by default
	// (defaultMaxCertificateChainBytes). A payload (dwLength minus the
	// 8-byte header) larger than this fails with ErrTruncated rather than
	// driving an unbounded read
	// off a malformed or adversarial directory entry.
	MaxCertificateChainBytes uint32
}

// ImageFacts is the immutable record Parse emits.
type ImageFacts struct {
	Machine            uint16 `json:"machine"`
	Characteristics    uint16 `json:"characteristics"`
	Subsystem          uint16 `json:"subsystem"`
	DllCharacteristics uint16 `json:"dll_characteristics"`

	HasSignature     bool   `json:"has_signature"`
	CMSSignatureBlob []byte `json:"cms_signature_blob,omitempty"`

	HasMetadata bool `json:"has_metadata"`

	SecurityDataDirectoryRange rangeset.StreamRange `json:"security_data_directory_range"`
	HashRangePlan              HashRangePlan        `json:"hash_range_plan"`
}

// File is an open PE image, either memory-mapped from disk or wrapping an
// in-memory byte slice. It is safe to call Parse at most once; construct a
// new File to re-parse.
type File struct {
	data mmap.MMap
	f    *os.File
	raw  []byte
	size uint64

	r      *streamio.Reader
	logger *log.Helper

	maxCertificateChainBytes uint32

	dosHeader       ImageDOSHeader
	fileHeader      ImageFileHeader
	optHeaderOffset uint64
	is64            bool
	sizeOfHeaders   uint64

	machine            uint16
	characteristics    uint16
	subsystem          uint16
	dllCharacteristics uint16

	checkSumRange              rangeset.StreamRange
	securityDataDirectoryRange rangeset.StreamRange
	securityIDD                DataDirectory
	corIDD                     DataDirectory

	sections []ImageSectionHeader
}

// Open memory-maps the named file read-only.
func Open(name string, opts *Options) (*File, error) {
	osFile, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	data, err := mmap.Map(osFile, mmap.RDONLY, 0)
	if err != nil {
		osFile.Close()
		return nil, err
	}

	f := newFile(opts)
	f.data = data
	f.f = osFile
	f.size = uint64(len(data))
	f.r = streamio.New(data)
	return f, nil
}

// OpenBytes wraps an in-memory buffer. The caller retains ownership of
// data; it must not be mutated while the returned File is in use.
func OpenBytes(data []byte, opts *Options) (*File, error) {
	f := newFile(opts)
	f.raw = data
	f.size = uint64(len(data))
	f.r = streamio.New(data)
	return f, nil
}

func newFile(opts *Options) *File {
	f := &File{}
	var logger log.Logger
	maxCertificateChainBytes := uint32(defaultMaxCertificateChainBytes)
	if opts != nil {
		if opts.Logger != nil {
			logger = opts.Logger
		}
		if opts.MaxCertificateChainBytes != 0 {
			maxCertificateChainBytes = opts.MaxCertificateChainBytes
		}
	}
	if logger == nil {
		logger = log.NewStdLogger(os.Stderr)
	}
	f.logger = log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelWarn)))
	f.maxCertificateChainBytes = maxCertificateChainBytes
	return f
}

// Close releases any memory mapping and underlying file handle. OpenBytes
// files have nothing to release.
func (f *File) Close() error {
	if f.data != nil {
		if err := f.data.Unmap(); err != nil {
			return err
		}
	}
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

// minPESize is the smallest input this module will attempt to parse as a
// PE image: the 64-byte DOS header. Shorter NT headers are caught later
// as truncated reads.
const minPESize = 64

// Parse runs the full pipeline: DOS/NT/section-header parsing, hash-range
// planning, and (when requested) signature-blob extraction. It is
// side-effect-free on success.
func (f *File) Parse(mode Mode) (*ImageFacts, error) {
	if f.size < minPESize {
		return nil, ErrTruncated
	}

	if err := f.parseDOSHeader(); err != nil {
		return nil, err
	}
	if err := f.parseNTHeader(); err != nil {
		return nil, err
	}
	if err := f.parseSectionHeader(); err != nil {
		return nil, err
	}

	facts := &ImageFacts{
		Machine:                    f.machine,
		Characteristics:            f.characteristics,
		Subsystem:                  f.subsystem,
		DllCharacteristics:         f.dllCharacteristics,
		HasSignature:               f.hasEmbeddedSignature(),
		HasMetadata:                f.hasEmbeddedMetadata(),
		SecurityDataDirectoryRange: f.securityDataDirectoryRange,
		HashRangePlan:              f.computeHashRangePlan(),
	}

	if facts.HasSignature && mode&ModeReadCodeSignature != 0 {
		blob, err := f.extractSignature()
		if err != nil {
			return nil, err
		}
		facts.CMSSignatureBlob = blob
	}

	return facts, nil
}

// Is reports whether data opens with the DOS and NT magics, without
// further parsing. It never returns an error: a truncated or malformed
// input simply reports false.
func Is(data []byte) bool {
	r := streamio.New(data)
	magic, err := r.Uint16(0)
	if err != nil || magic != ImageDOSSignature {
		return false
	}

	elfanew, err := r.Uint32(0x3c)
	if err != nil {
		return false
	}

	sig, err := r.Uint32(uint64(elfanew))
	if err != nil {
		return false
	}
	return sig == ImageNTSignature
}

// asTruncated normalizes streamio's truncation error to this package's
// exported sentinel, so callers never need to depend on internal/streamio.
func asTruncated(err error) error {
	if err == streamio.ErrTruncated {
		return ErrTruncated
	}
	return err
}
