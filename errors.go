// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "errors"

// Structural/format errors surfaced to callers. These are expected on
// adversarial input and are never retried internally.
var (
	// ErrNotPE is returned when the DOS or NT signature does not match.
	ErrNotPE = errors.New("pe: not a PE image")

	// ErrTruncated is returned when fewer bytes remain in the stream than
	// a read requires.
	ErrTruncated = errors.New("pe: truncated read")

	// ErrUnsupportedOptionalHeader is returned when the optional header
	// magic is neither PE32 nor PE32+, or the declared size cannot
	// accommodate the variant's fixed layout.
	ErrUnsupportedOptionalHeader = errors.New("pe: unsupported optional header")

	// ErrUnsupportedCertType is returned when the first WIN_CERTIFICATE
	// entry's wCertificateType is not PKCS_SIGNED_DATA.
	ErrUnsupportedCertType = errors.New("pe: unsupported WIN_CERTIFICATE type")
)
