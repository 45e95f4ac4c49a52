// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package capttk

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-print/capttk/internal/scoa"
)

// pageOffsets records the byte offsets of the packets that frame a
// single page within a job file. HiSCoAParams is -1 for configurations
// that do not carry that packet (CAPT1).
type pageOffsets struct {
	PageHeader      int64
	HiSCoAParams    int64
	RasterSetup     int64
	RasterDataStart int64
}

// Job is a parsed CAPT job file: it owns a seekable ByteSource, knows
// its Version and Config, and lazily discovers and memoizes the offsets
// of each page as pages are requested, exactly as far into the file as
// is needed to answer the query at hand.
type Job struct {
	src    *FileSource
	config *Config
	pages  []pageOffsets
	eof    bool // true once the scanner has been run to the end of file
}

// OpenJob opens path, detects its Version, and returns a Job ready to
// answer page queries. The returned Job owns the file and must be
// closed with Close.
func OpenJob(path string) (*Job, error) {
	src, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}
	j, err := newJob(src)
	if err != nil {
		src.Close()
		return nil, err
	}
	return j, nil
}

func newJob(src *FileSource) (*Job, error) {
	_, config, err := DetectVersion(src)
	if err != nil {
		return nil, err
	}
	return &Job{src: src, config: config}, nil
}

// Close releases the job's underlying file.
func (j *Job) Close() error {
	return j.src.Close()
}

// Version reports the job's detected Version.
func (j *Job) Version() Version {
	return j.config.Version
}

// Config returns the job's Config.
func (j *Job) Config() *Config {
	return j.config
}

// discoverPages runs the packet scanner from wherever it last left off
// up through at least page n, memoizing every page offset tuple found
// along the way. It is idempotent: pages already discovered are never
// re-scanned.
func (j *Job) discoverPages(n int) error {
	for len(j.pages) <= n && !j.eof {
		start := int64(magicSize)
		if len(j.pages) > 0 {
			// Resume scanning from the previous page's raster data
			// packet so offsets accumulate monotonically without
			// re-reading the file from the start for every page.
			start = j.pages[len(j.pages)-1].RasterDataStart
		}
		if err := j.src.Seek(start); err != nil {
			return err
		}
		scanner := NewPacketScanner(j.src, j.config.PagingOpcodes)
		offsets, ok, err := scanner.Next()
		if err != nil {
			return err
		}
		if !ok {
			j.eof = true
			return nil
		}
		j.pages = append(j.pages, offsetsToPage(j.config, offsets))
	}
	return nil
}

// offsetsToPage maps a raw cycle-order offset tuple, as produced by
// PacketScanner, onto the named fields of pageOffsets according to the
// version's paging opcode layout.
func offsetsToPage(c *Config, offsets []int64) pageOffsets {
	p := pageOffsets{HiSCoAParams: -1}
	if c.HasHiSCoAParams {
		// cycle: raster setup, HiSCoA params, raster data
		p.RasterSetup = offsets[0]
		p.HiSCoAParams = offsets[1]
		p.RasterDataStart = offsets[2]
	} else {
		// cycle: raster setup, raster data
		p.RasterSetup = offsets[0]
		p.RasterDataStart = offsets[1]
	}
	p.PageHeader = p.RasterSetup - c.PageHeaderSize
	return p
}

// PageCount returns the total number of pages in the job, scanning the
// remainder of the file if it has not already been fully scanned.
func (j *Job) PageCount() (int, error) {
	for !j.eof {
		if err := j.discoverPages(len(j.pages)); err != nil {
			return 0, err
		}
	}
	return len(j.pages), nil
}

// rasterDims is the geometry carried by a page's raster setup packet:
// LineBytes is the wire's line byte width (bytes per scan line), and
// Width is always LineBytes*8 since SCoA is 1-bit.
type rasterDims struct {
	Width, Height, LineBytes int
}

// rasterSetupPrefixLen is how much of the raster setup packet's payload
// must be read to reach the height field: the line byte width and
// height words sit at payload offsets 26 and 28.
const rasterSetupPrefixLen = 30

// rasterDims extracts the line byte width and height from the raster
// setup packet's payload.
func (j *Job) rasterDims(page int) (rasterDims, error) {
	p := j.pages[page]
	if err := j.src.Seek(p.RasterSetup); err != nil {
		return rasterDims{}, err
	}
	extractor := NewPacketExtractor(j.src, j.config.RasterSetupOpcode, j.config.RasterDataOpcode, MaxPackets(1))
	var hdr [rasterSetupPrefixLen]byte
	if _, err := io.ReadFull(extractor, hdr[:]); err != nil {
		return rasterDims{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	lineBytes := int(word(hdr[26], hdr[27]))
	height := int(word(hdr[28], hdr[29]))
	return rasterDims{
		Width:     lineBytes * 8,
		Height:    height,
		LineBytes: lineBytes,
	}, nil
}

// OutputFormat selects the representation WritePage produces.
type OutputFormat int

const (
	// FormatRaw emits the codec name, width, height and a declared byte
	// size, followed by the raw (still SCoA-encoded) raster bytes.
	FormatRaw OutputFormat = iota
	// FormatP4 decodes the raster and emits it as a binary PBM (P4)
	// image: 1 bit per pixel, packed MSB-first.
	FormatP4
)

// WritePage writes page (0-indexed) from the job to w in the requested
// format.
func (j *Job) WritePage(w io.Writer, page int, format OutputFormat) error {
	if err := j.discoverPages(page); err != nil {
		return err
	}
	if page < 0 || page >= len(j.pages) {
		return ErrInvalidPage
	}
	dims, err := j.rasterDims(page)
	if err != nil {
		return err
	}

	p := j.pages[page]
	if err := j.src.Seek(p.RasterDataStart); err != nil {
		return err
	}
	extractor := NewPacketExtractor(j.src, j.config.RasterDataOpcode, j.config.RasterEndOpcode)

	switch format {
	case FormatRaw:
		raw, err := io.ReadAll(extractor)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n%d %d\n%d\n", j.config.CodecName, dims.Width, dims.Height, len(raw))
		_, err = w.Write(raw)
		return err

	case FormatP4:
		if j.config.CodecName != "SCOA" {
			return ErrNoDecoder
		}
		// 0xF0 is the SCoA init fill: the value an EOL opcode reproduces,
		// or an OLD segment copies, before any real scanline has been
		// decoded yet.
		dec, err := scoa.NewDecoder(bufio.NewReader(extractor), dims.LineBytes, 0xF0)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "P4\n%d %d\n", dims.Width, dims.Height)
		_, err = io.CopyN(w, dec, int64(dims.LineBytes*dims.Height))
		if err != nil && err != io.EOF {
			return err
		}
		return nil

	default:
		return ErrUnsupportedFormat
	}
}
