// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package capttk

import "errors"

// Sentinel errors returned by the packages that make up capttk. Callers
// should use errors.Is to test for these since the concrete error
// returned may wrap additional context.
var (
	// ErrUnknownVersion is returned when a job's version magic does not
	// match any of the known CAPT configurations.
	ErrUnknownVersion = errors.New("capttk: unknown job version")

	// ErrInvalidPage is returned when a requested page number is out of
	// range, or its packet structure could not be located.
	ErrInvalidPage = errors.New("capttk: invalid page")

	// ErrUnsupportedFormat is returned when WritePage is asked
	// to produce an output format it does not recognize.
	ErrUnsupportedFormat = errors.New("capttk: unsupported output format")

	// ErrNoDecoder is returned when raster decoding is requested for a
	// job whose configuration names a codec with no registered decoder.
	ErrNoDecoder = errors.New("capttk: no decoder registered for codec")

	// ErrUnexpectedEnd is returned when the input is exhausted while an
	// opcode, or one of its sub-fields, is still incomplete.
	ErrUnexpectedEnd = errors.New("capttk: unexpected end of input")

	// ErrSeekUnsupported is returned by a ByteSource that cannot seek,
	// e.g. one backed by a forward-only stream.
	ErrSeekUnsupported = errors.New("capttk: seek not supported by this byte source")
)

// StructuralError is returned when the container's packet framing is
// internally inconsistent, e.g. a declared packet length smaller than
// the four byte opcode+length header.
type StructuralError string

func (e StructuralError) Error() string {
	return "capttk: structural error: " + string(e)
}
