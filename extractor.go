// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package capttk

import (
	"fmt"
	"io"
)

type extractState int

const (
	extractScanning extractState = iota
	extractYielding
	extractSkipping
	extractDone
)

type extractorOpts struct {
	maxPackets int
	yieldEnd   bool
}

// ExtractorOption configures a PacketExtractor.
type ExtractorOption func(*extractorOpts)

// MaxPackets bounds the number of target-opcode packets the extractor
// will yield before stopping. A value <= 0 (the default) means
// unbounded.
func MaxPackets(n int) ExtractorOption {
	return func(o *extractorOpts) { o.maxPackets = n }
}

// YieldEndPacket includes the payload of the end-opcode packet, when
// found, as the final bytes the extractor produces.
func YieldEndPacket(yield bool) ExtractorOption {
	return func(o *extractorOpts) { o.yieldEnd = yield }
}

// PacketExtractor implements io.Reader over the payload bytes of every
// packet in src whose opcode matches target, stopping at the first
// packet whose opcode matches end. It never buffers an entire packet:
// payload bytes are pulled from src and copied into the caller's buffer
// one at a time, resuming exactly where the previous Read left off, so
// memory use is independent of packet size.
type PacketExtractor struct {
	src    ByteSource
	target opcode
	end    opcode
	opts   extractorOpts

	state        extractState
	remaining    int
	afterIsDone  bool
	matchedCount int

	lastByte byte
	haveLast bool
	err      error
}

// NewPacketExtractor returns a PacketExtractor reading target-opcode
// packet payloads from src, stopping at the first end-opcode packet.
func NewPacketExtractor(src ByteSource, target, end opcode, opts ...ExtractorOption) *PacketExtractor {
	o := extractorOpts{}
	for _, fn := range opts {
		fn(&o)
	}
	return &PacketExtractor{src: src, target: target, end: end, opts: o}
}

// Read implements io.Reader.
func (e *PacketExtractor) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		switch e.state {
		case extractDone:
			if e.err != nil {
				return n, e.err
			}
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF

		case extractYielding:
			if e.remaining == 0 {
				if e.afterIsDone {
					e.state = extractDone
				} else {
					e.state = extractScanning
				}
				continue
			}
			b, err := e.src.Next()
			if err != nil {
				e.err = ErrUnexpectedEnd
				e.state = extractDone
				continue
			}
			p[n] = b
			n++
			e.remaining--

		case extractSkipping:
			if e.remaining == 0 {
				e.state = extractDone
				continue
			}
			if _, err := e.src.Next(); err != nil {
				e.err = ErrUnexpectedEnd
				e.state = extractDone
				continue
			}
			e.remaining--

		case extractScanning:
			if e.opts.maxPackets > 0 && e.matchedCount >= e.opts.maxPackets {
				e.state = extractDone
				continue
			}
			if err := e.scanStep(); err != nil {
				if err != io.EOF {
					e.err = err
				}
				e.state = extractDone
				continue
			}
		}
	}
	return n, nil
}

// scanStep advances the window by one byte, transitioning the state
// machine into extractYielding or extractSkipping the moment a target or
// end opcode is recognized. It returns io.EOF on a clean end of stream
// with no match pending.
func (e *PacketExtractor) scanStep() error {
	for {
		b, err := e.src.Next()
		if err != nil {
			return io.EOF
		}
		if !e.haveLast {
			e.lastByte = b
			e.haveLast = true
			continue
		}
		matchTarget := e.lastByte == e.target[0] && b == e.target[1]
		matchEnd := e.lastByte == e.end[0] && b == e.end[1]
		if !matchTarget && !matchEnd {
			e.lastByte = b
			continue
		}
		lo, lerr := e.src.Next()
		if lerr != nil {
			return ErrUnexpectedEnd
		}
		hi, herr := e.src.Next()
		if herr != nil {
			return ErrUnexpectedEnd
		}
		length := word(lo, hi)
		if length < 4 {
			return StructuralError(fmt.Sprintf("packet at offset %d declares length %d, less than the 4 byte opcode+length header", e.src.Tell()-4, length))
		}
		payload := int(length) - 4
		e.haveLast = false
		if matchTarget {
			e.matchedCount++
			e.remaining = payload
			e.state = extractYielding
			e.afterIsDone = false
			return nil
		}
		// matchEnd
		if e.opts.yieldEnd {
			e.remaining = payload
			e.state = extractYielding
			e.afterIsDone = true
		} else {
			e.remaining = payload
			e.state = extractSkipping
		}
		return nil
	}
}
