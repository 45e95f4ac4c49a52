// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package capttk

import "fmt"

// PacketScanner recognizes a cycle of k 2-byte opcodes in a CAPT packet
// stream and reports the first-seen offset of each opcode, once per
// completed cycle. This is how Job locates the packets that delimit a
// page (raster setup, raster data and, for CAPT2, the HiSCoA parameter
// packet; the page header offset is derived from the raster setup
// offset) without buffering the stream or interpreting any packet
// payload.
//
// The scanner works by sliding a 2-byte window over the stream one byte
// at a time. Whenever the window equals the opcode currently expected in
// the cycle, the offset of the window's first byte is recorded, the
// packet's declared length is read and used to skip its payload, and the
// scanner advances to the next opcode in the cycle. Once every opcode in
// the cycle has been seen, the recorded offsets are emitted as a single
// tuple and the cycle restarts.
//
// PacketScanner is single-threaded and pull based: callers drive it by
// repeatedly calling Next.
type scannerOpts struct {
	bias int64
}

// ScannerOption configures a PacketScanner.
type ScannerOption func(*scannerOpts)

// WithBias adds a constant offset to every recorded position. This is
// used when the source's positions do not count from the start of the
// file (e.g. a buffer holding a job without its version magic) so that
// offsets it reports are relative to the start of the file rather than
// to the start of the source.
func WithBias(bias int64) ScannerOption {
	return func(o *scannerOpts) {
		o.bias = bias
	}
}

// PacketScanner implements the opcode-cycle scan described above.
type PacketScanner struct {
	src     ByteSource
	cycle   []opcode
	bias    int64
	offsets []int64

	lastByte byte
	haveLast bool
	cycleIdx int
	err      error
	done     bool
}

// NewPacketScanner returns a PacketScanner that watches for cycle over
// src. cycle must be non-empty.
func NewPacketScanner(src ByteSource, cycle []opcode, opts ...ScannerOption) *PacketScanner {
	o := scannerOpts{}
	for _, fn := range opts {
		fn(&o)
	}
	return &PacketScanner{
		src:     src,
		cycle:   cycle,
		bias:    o.bias,
		offsets: make([]int64, len(cycle)),
	}
}

// Next scans forward until a full cycle of offsets has been recorded and
// returns a freshly allocated copy of them, in cycle order. ok is false
// once the underlying source is exhausted without a pending error; any
// other error is returned via err. A new slice is returned on every
// call: callers must never see a tuple that aliases a previous one, nor
// one that is mutated by a subsequent call.
func (s *PacketScanner) Next() (offsets []int64, ok bool, err error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if s.done {
		return nil, false, nil
	}
	for {
		b, rerr := s.src.Next()
		if rerr != nil {
			s.done = true
			return nil, false, nil
		}
		if !s.haveLast {
			s.lastByte = b
			s.haveLast = true
			continue
		}
		windowOffset := s.src.Tell() - 2
		if s.lastByte == s.cycle[s.cycleIdx][0] && b == s.cycle[s.cycleIdx][1] {
			s.offsets[s.cycleIdx] = windowOffset + s.bias
			lo, lerr := s.src.Next()
			if lerr != nil {
				s.err = ErrUnexpectedEnd
				return nil, false, s.err
			}
			hi, herr := s.src.Next()
			if herr != nil {
				s.err = ErrUnexpectedEnd
				return nil, false, s.err
			}
			length := word(lo, hi)
			var skip int
			switch {
			case length == 0:
				skip = 1
			case length < 4:
				s.err = StructuralError(fmt.Sprintf("packet at offset %d declares length %d, less than the 4 byte opcode+length header", windowOffset+s.bias, length))
				return nil, false, s.err
			default:
				skip = int(length) - 4
			}
			for i := 0; i < skip; i++ {
				if _, serr := s.src.Next(); serr != nil {
					s.err = ErrUnexpectedEnd
					return nil, false, s.err
				}
			}
			s.haveLast = false
			completed := s.cycleIdx == len(s.cycle)-1
			s.cycleIdx = (s.cycleIdx + 1) % len(s.cycle)
			if completed {
				out := make([]int64, len(s.offsets))
				copy(out, s.offsets)
				return out, true, nil
			}
			continue
		}
		s.lastByte = b
	}
}

// Err returns any error encountered by the scanner that was not already
// reported by Next.
func (s *PacketScanner) Err() error {
	return s.err
}
