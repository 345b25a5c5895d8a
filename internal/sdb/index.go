package sdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// marshalIndex serializes docs into a single INDEX page payload, sorted by
// doc_id bytes ascending for determinism.
//
// Grounded in the system catalog (internal/storage/pager/catalog.go), which
// likewise flushes a set of named records to a dedicated page at close;
// here the record shape and sort key are StreamDb's own rather than the
// catalog's JSON-encoded CatalogEntry.
func marshalIndex(docs []Document) []byte {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})

	var buf bytes.Buffer
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(sorted)))
	buf.Write(countBuf[:])

	for _, d := range sorted {
		buf.Write(d.ID[:])

		var pageBuf [8]byte
		binary.LittleEndian.PutUint64(pageBuf[:], uint64(d.FirstPage))
		buf.Write(pageBuf[:])

		var versionBuf [4]byte
		binary.LittleEndian.PutUint32(versionBuf[:], uint32(d.CurrentVersion))
		buf.Write(versionBuf[:])

		var pathCountBuf [4]byte
		binary.LittleEndian.PutUint32(pathCountBuf[:], uint32(len(d.Paths)))
		buf.Write(pathCountBuf[:])

		for _, p := range d.Paths {
			pb := []byte(p)
			var lenBuf [4]byte
			binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(pb)))
			buf.Write(lenBuf[:])
			buf.Write(pb)
		}
	}
	return buf.Bytes()
}

// unmarshalIndex parses an INDEX page payload into Document records (the
// read-path dual of marshalIndex).
func unmarshalIndex(payload []byte) ([]Document, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: truncated index page", ErrMalformedNode)
	}
	count := int(binary.LittleEndian.Uint32(payload[0:4]))
	off := 4

	docs := make([]Document, 0, count)
	for i := 0; i < count; i++ {
		if off+16+8+4+4 > len(payload) {
			return nil, fmt.Errorf("%w: truncated index record %d", ErrMalformedNode, i)
		}
		var d Document
		copy(d.ID[:], payload[off:off+16])
		off += 16
		d.FirstPage = PageID(binary.LittleEndian.Uint64(payload[off:]))
		off += 8
		d.CurrentVersion = int32(binary.LittleEndian.Uint32(payload[off:]))
		off += 4
		pathCount := int(binary.LittleEndian.Uint32(payload[off:]))
		off += 4

		for j := 0; j < pathCount; j++ {
			if off+4 > len(payload) {
				return nil, fmt.Errorf("%w: truncated index record %d path %d", ErrMalformedNode, i, j)
			}
			plen := int(binary.LittleEndian.Uint32(payload[off:]))
			off += 4
			if plen < 0 || off+plen > len(payload) {
				return nil, fmt.Errorf("%w: truncated index record %d path %d", ErrMalformedNode, i, j)
			}
			d.Paths = append(d.Paths, string(payload[off:off+plen]))
			off += plen
		}
		docs = append(docs, d)
	}
	return docs, nil
}
