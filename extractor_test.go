// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package capttk

import (
	"bytes"
	"errors"
	"io"
	"io/ioutil"
	"testing"
)

func TestPacketExtractorSinglePacket(t *testing.T) {
	var buf []byte
	buf = appendPacket(buf, opcode{0x40, 0x02}, []byte{0x01, 0x02, 0x03})
	buf = appendPacket(buf, opcode{0x40, 0x03}, nil)

	e := NewPacketExtractor(NewMemorySource(buf), opcode{0x40, 0x02}, opcode{0x40, 0x03})
	got, err := ioutil.ReadAll(e)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if want := []byte{0x01, 0x02, 0x03}; !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestPacketExtractorMultiplePackets(t *testing.T) {
	var buf []byte
	buf = appendPacket(buf, opcode{0x40, 0x02}, []byte{0x01, 0x02})
	buf = appendPacket(buf, opcode{0x40, 0x02}, []byte{0x03, 0x04})
	buf = appendPacket(buf, opcode{0x40, 0x03}, nil)

	e := NewPacketExtractor(NewMemorySource(buf), opcode{0x40, 0x02}, opcode{0x40, 0x03})
	got, err := ioutil.ReadAll(e)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if want := []byte{0x01, 0x02, 0x03, 0x04}; !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestPacketExtractorMaxPackets(t *testing.T) {
	var buf []byte
	buf = appendPacket(buf, opcode{0x40, 0x02}, []byte{0x01, 0x02})
	buf = appendPacket(buf, opcode{0x40, 0x02}, []byte{0x03, 0x04})
	buf = appendPacket(buf, opcode{0x40, 0x03}, nil)

	e := NewPacketExtractor(NewMemorySource(buf), opcode{0x40, 0x02}, opcode{0x40, 0x03}, MaxPackets(1))
	got, err := ioutil.ReadAll(e)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if want := []byte{0x01, 0x02}; !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestPacketExtractorYieldEndPacket(t *testing.T) {
	var buf []byte
	buf = appendPacket(buf, opcode{0x40, 0x02}, []byte{0x01, 0x02})
	buf = appendPacket(buf, opcode{0x40, 0x03}, []byte{0xFF})

	e := NewPacketExtractor(NewMemorySource(buf), opcode{0x40, 0x02}, opcode{0x40, 0x03}, YieldEndPacket(true))
	got, err := ioutil.ReadAll(e)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if want := []byte{0x01, 0x02, 0xFF}; !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestPacketExtractorUnexpectedEnd(t *testing.T) {
	buf := appendPacket(nil, opcode{0x40, 0x02}, []byte{0x01, 0x02})
	buf = buf[:len(buf)-1] // truncate the payload

	e := NewPacketExtractor(NewMemorySource(buf), opcode{0x40, 0x02}, opcode{0x40, 0x03})
	_, err := ioutil.ReadAll(e)
	if err != ErrUnexpectedEnd {
		t.Errorf("got %v, want %v", err, ErrUnexpectedEnd)
	}
}

func TestPacketExtractorShortLengthIsStructuralError(t *testing.T) {
	// A matched target packet declaring a length of 1, 2 or 3 cannot even
	// hold the 4 byte opcode+length header and must be rejected.
	buf := []byte{0x40, 0x02, 0x03, 0x00}

	e := NewPacketExtractor(NewMemorySource(buf), opcode{0x40, 0x02}, opcode{0x40, 0x03})
	_, err := ioutil.ReadAll(e)
	var serr StructuralError
	if !errors.As(err, &serr) {
		t.Errorf("got %v (%T), want StructuralError", err, err)
	}
}

func TestPacketExtractorSmallReadBuffer(t *testing.T) {
	var buf []byte
	buf = appendPacket(buf, opcode{0x40, 0x02}, []byte{0x01, 0x02, 0x03, 0x04, 0x05})
	buf = appendPacket(buf, opcode{0x40, 0x03}, nil)

	e := NewPacketExtractor(NewMemorySource(buf), opcode{0x40, 0x02}, opcode{0x40, 0x03})
	var out []byte
	small := make([]byte, 2)
	for {
		n, err := e.Read(small)
		out = append(out, small[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if want := []byte{0x01, 0x02, 0x03, 0x04, 0x05}; !bytes.Equal(out, want) {
		t.Errorf("got % x, want % x", out, want)
	}
}
