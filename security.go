// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// WIN_CERTIFICATE revision values.
const (
	WinCertRevision1_0 = 0x0100
	WinCertRevision2_0 = 0x0200
)

// WIN_CERTIFICATE certificate-type values.
const (
	// WinCertTypeX509 marks a raw X.509 certificate. Not produced by
	// Authenticode in practice; unsupported here.
	WinCertTypeX509 = 0x0001

	// WinCertTypePKCSSignedData marks a PKCS#7 SignedData structure, the
	// universal Authenticode convention.
	WinCertTypePKCSSignedData = 0x0002
)

// winCertificateHeaderSize is the fixed 8-byte WIN_CERTIFICATE header:
// dwLength u32 | wRevision u16 | wCertificateType u16.
const winCertificateHeaderSize = 8

// winCertificateHeader is the fixed header preceding every attached
// certificate blob.
type winCertificateHeader struct {
	Length          uint32
	Revision        uint16
	CertificateType uint16
}

// extractSignature seeks to the Certificate Table and reads the first
// WIN_CERTIFICATE entry's payload. Subsequent chained entries (multiple
// signatures are permitted by the format) are never consumed; only the
// first is surfaced, matching universal Authenticode convention.
func (f *File) extractSignature() ([]byte, error) {
	offset := uint64(f.securityIDD.VirtualAddress)

	var hdr winCertificateHeader
	if err := f.r.Struct(&hdr, offset, winCertificateHeaderSize); err != nil {
		return nil, asTruncated(err)
	}

	if hdr.CertificateType != WinCertTypePKCSSignedData {
		return nil, ErrUnsupportedCertType
	}

	if uint64(hdr.Length) < winCertificateHeaderSize {
		return nil, ErrTruncated
	}

	payloadSize := uint64(hdr.Length) - winCertificateHeaderSize
	if payloadSize > uint64(f.maxCertificateChainBytes) {
		f.logger.Warnf("WIN_CERTIFICATE payload of %d bytes exceeds configured cap of %d", payloadSize, f.maxCertificateChainBytes)
		return nil, ErrTruncated
	}

	blob, err := f.r.Bytes(offset+winCertificateHeaderSize, payloadSize)
	if err != nil {
		return nil, asTruncated(err)
	}

	return blob, nil
}
