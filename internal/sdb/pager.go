package sdb

import (
	"fmt"
)

// pager owns the backing storage and assigns monotonically increasing page
// IDs. It is the only component that computes page offsets; the file header
// at offset 0 is read and written by the container.
//
// Adapted from internal/storage/pager.Pager, which owns a buffer pool, a
// WAL, and a free-list because it serves a concurrent, crash-recoverable
// B+Tree engine. StreamDb is single-threaded and synchronous with no
// journal and no free-list reuse, so this pager keeps only the part of
// Pager that handles a single page read/write: compute the on-disk offset,
// checksum the stored bytes, and flush. There is no cache eviction policy
// here because each page in a StreamDb write pass is visited a small,
// bounded number of times (a trie node is read/rewritten, never repeatedly
// scanned).
type pager struct {
	store          storage
	currentPageID  PageID
	codec          codec
	useCompression bool
}

func newPager(store storage, useCompression bool) *pager {
	var c codec
	if useCompression {
		c = snappyCodec{}
	} else {
		c = identityCodec{}
	}
	return &pager{
		store:          store,
		currentPageID:  0,
		codec:          c,
		useCompression: useCompression,
	}
}

// allocatePage returns the next page ID without performing I/O.
func (p *pager) allocatePage() PageID {
	id := p.currentPageID
	p.currentPageID++
	return id
}

func pageOffset(id PageID) int64 {
	return int64(HeaderSize) + int64(id)*int64(PageSize)
}

// writeRawPage stores payload (compressing it first unless the container has
// compression disabled) under the given page ID with the given chain
// pointers and flags.
func (p *pager) writeRawPage(id PageID, payload []byte, flags pageFlag, version int32, prev, next PageID) error {
	stored := p.codec.compress(payload)
	effectiveFlags := flags
	if p.useCompression && len(stored) > MaxPayload {
		// Fall back to an uncompressed page rather than failing the whole
		// write when compression expands past budget.
		stored = payload
		effectiveFlags |= flagUncompressed
	}
	if len(stored) > MaxPayload {
		return fmt.Errorf("%w: page %d needs %d bytes, budget is %d", ErrPayloadTooLarge, id, len(stored), MaxPayload)
	}

	buf := make([]byte, PageSize)
	h := pageHeader{
		crc:        checksum(stored),
		version:    version,
		prevPage:   prev,
		nextPage:   next,
		flags:      effectiveFlags,
		payloadLen: int32(len(stored)),
	}
	marshalHeader(h, buf[:PageHeaderSize])
	copy(buf[PageHeaderSize:], stored)

	if _, err := p.store.WriteAt(buf, pageOffset(id)); err != nil {
		return fmt.Errorf("%w: writing page %d: %v", ErrIO, id, err)
	}
	if err := p.store.Flush(); err != nil {
		return fmt.Errorf("%w: flushing page %d: %v", ErrIO, id, err)
	}
	return nil
}

// readRawPage loads the page at id, verifies its checksum, and decompresses
// its payload (unless it was written with flagUncompressed or the container
// was opened without compression).
func (p *pager) readRawPage(id PageID) (pageHeader, []byte, error) {
	buf := make([]byte, PageSize)
	if _, err := p.store.ReadAt(buf, pageOffset(id)); err != nil {
		return pageHeader{}, nil, fmt.Errorf("%w: reading page %d: %v", ErrIO, id, err)
	}
	h := unmarshalHeader(buf[:PageHeaderSize])

	if h.payloadLen < 0 || int(h.payloadLen) > MaxPayload {
		return pageHeader{}, nil, fmt.Errorf("%w: page %d has invalid payload_len %d", ErrMalformedNode, id, h.payloadLen)
	}
	// Truncate to payload_len BEFORE decompression, not after.
	stored := buf[PageHeaderSize : PageHeaderSize+int(h.payloadLen)]

	if checksum(stored) != h.crc {
		return pageHeader{}, nil, fmt.Errorf("%w: page %d", ErrChecksumMismatch, id)
	}

	if !p.useCompression || h.flags&flagUncompressed != 0 {
		out := make([]byte, len(stored))
		copy(out, stored)
		return h, out, nil
	}
	payload, err := p.codec.decompress(stored)
	if err != nil {
		return pageHeader{}, nil, fmt.Errorf("%w: page %d: %v", ErrDecompress, id, err)
	}
	return h, payload, nil
}
