// Package sdb implements the StreamDb container: a paged, optionally
// compressed, content-addressed single-file store with a persistent reverse
// path trie. Keys are reversed paths, so paths sharing a filename tail share
// a trie prefix; lookups resolve an exact logical path only.
//
// The on-disk layout follows a fixed-size page model in the spirit of
// internal/storage/pager (PageHeader, CRC-32 over a page, little-endian
// fields throughout) adapted to StreamDb's simpler, single-threaded write
// path with monotonic page allocation (trie nodes are rewritten in place at
// their own page): there is no WAL, no free list in active use, and
// no B+Tree — pages are either a DATA chain link, a TRIE node, or the one
// INDEX page written at close.
package sdb

import (
	"encoding/binary"
)

const (
	// PageSize is the fixed size of every page in the backing file.
	PageSize = 4096

	// PageHeaderSize is the size of the header prefixing every page.
	PageHeaderSize = 32

	// HeaderSize is the size of the file header at offset 0: 8 bytes of
	// magic followed by three (PageID int64, version int32) slots of 12
	// bytes each (index_page, trie_root_page, free_list_page).
	HeaderSize = 8 + 3*12

	// MaxPayload is the usable payload capacity of a single page.
	MaxPayload = PageSize - PageHeaderSize
)

// magic is the 8-byte sentinel identifying a StreamDb container file.
var magic = [8]byte{0x55, 0xAA, 0xFE, 0xED, 0xFA, 0xCE, 0xDA, 0x7A}

// PageID identifies a page. -1 is the sentinel for "absent".
type PageID int64

// NoPage is the sentinel PageID meaning "absent".
const NoPage PageID = -1

// pageFlag tags the kind of content a page carries.
type pageFlag uint8

const (
	flagData  pageFlag = 0x01
	flagTrie  pageFlag = 0x02
	flagFree  pageFlag = 0x04
	flagIndex pageFlag = 0x08
	// flagUncompressed marks a page whose payload was stored uncompressed
	// even though the container has compression enabled, because the
	// compressed form did not fit the per-page budget.
	flagUncompressed pageFlag = 0x10
)

// pageHeader is the 32-byte record prefixing every page's payload.
//
//	crc32:u32, version:i32, prev_page:i64, next_page:i64, flags:u8,
//	payload_len:i32, reserved:3 bytes
type pageHeader struct {
	crc        uint32
	version    int32
	prevPage   PageID
	nextPage   PageID
	flags      pageFlag
	payloadLen int32
}

func marshalHeader(h pageHeader, buf []byte) {
	_ = buf[:PageHeaderSize]
	binary.LittleEndian.PutUint32(buf[0:4], h.crc)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.version))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.prevPage))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.nextPage))
	buf[24] = byte(h.flags)
	binary.LittleEndian.PutUint32(buf[25:29], uint32(h.payloadLen))
	buf[29], buf[30], buf[31] = 0, 0, 0
}

func unmarshalHeader(buf []byte) pageHeader {
	_ = buf[:PageHeaderSize]
	return pageHeader{
		crc:        binary.LittleEndian.Uint32(buf[0:4]),
		version:    int32(binary.LittleEndian.Uint32(buf[4:8])),
		prevPage:   PageID(binary.LittleEndian.Uint64(buf[8:16])),
		nextPage:   PageID(binary.LittleEndian.Uint64(buf[16:24])),
		flags:      pageFlag(buf[24]),
		payloadLen: int32(binary.LittleEndian.Uint32(buf[25:29])),
	}
}

// headerSlot is one of the three (PageID, version) pairs stored in the file
// header: index_page, trie_root_page, free_list_page, in that order.
type headerSlot struct {
	page    PageID
	version int32
}

func marshalFileHeader(index, trieRoot, freeList headerSlot, buf []byte) {
	_ = buf[:HeaderSize]
	copy(buf[0:8], magic[:])
	putSlot(buf[8:20], index)
	putSlot(buf[20:32], trieRoot)
	putSlot(buf[32:44], freeList)
}

func unmarshalFileHeader(buf []byte) (index, trieRoot, freeList headerSlot, ok bool) {
	if len(buf) < HeaderSize || [8]byte(buf[0:8]) != magic {
		return headerSlot{}, headerSlot{}, headerSlot{}, false
	}
	return getSlot(buf[8:20]), getSlot(buf[20:32]), getSlot(buf[32:44]), true
}

func putSlot(buf []byte, s headerSlot) {
	_ = buf[:12]
	binary.LittleEndian.PutUint64(buf[0:8], uint64(s.page))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(s.version))
}

func getSlot(buf []byte) headerSlot {
	_ = buf[:12]
	return headerSlot{
		page:    PageID(binary.LittleEndian.Uint64(buf[0:8])),
		version: int32(binary.LittleEndian.Uint32(buf[8:12])),
	}
}
