package sdb

import "fmt"

// Document is a named payload identified by a UUID and realized as a chain
// of DATA pages.
type Document struct {
	ID             [16]byte
	FirstPage      PageID
	CurrentVersion int32
	Paths          []string
}

// writeDocumentChain segments payload into MaxPayload-sized chunks and
// writes a doubly-linked chain of DATA pages through the pager, returning
// the first page ID.
//
// Adapted from the overflow-page chain in internal/storage/pager/overflow.go,
// which spills one oversized B+Tree value across a singly-linked chain of
// dedicated overflow pages. Here the *entire* document payload is always
// chained this way (there is no inline/overflow distinction — every
// document is a chain, even a one-page, zero-length one), and the chain is
// doubly linked via the generic page header's prev/next fields rather than
// a page-type-specific "NextOverflow" field.
func writeDocumentChain(p *pager, payload []byte) (PageID, error) {
	chunks := chunkPayload(payload)

	ids := make([]PageID, len(chunks))
	for i := range chunks {
		ids[i] = p.allocatePage()
	}

	for i, chunk := range chunks {
		prev := NoPage
		if i > 0 {
			prev = ids[i-1]
		}
		next := NoPage
		if i+1 < len(ids) {
			next = ids[i+1]
		}
		if err := p.writeRawPage(ids[i], chunk, flagData, 0, prev, next); err != nil {
			return NoPage, fmt.Errorf("writing data page %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return ids[0], nil
}

// chunkPayload splits payload into MaxPayload-sized slices. An empty
// payload still yields exactly one (empty) chunk so a document always has a
// valid FirstPage.
func chunkPayload(payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	for off := 0; off < len(payload); off += MaxPayload {
		end := off + MaxPayload
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, payload[off:end])
	}
	return chunks
}

// readDocumentChain walks the DATA page chain starting at first and
// reconstructs the full payload (the read-path dual of writeDocumentChain).
func readDocumentChain(p *pager, first PageID) ([]byte, error) {
	var out []byte
	id := first
	prev := NoPage
	for id != NoPage {
		h, payload, err := p.readRawPage(id)
		if err != nil {
			return nil, fmt.Errorf("reading data page %d: %w", id, err)
		}
		if h.flags&flagData == 0 {
			return nil, fmt.Errorf("%w: page %d is not a DATA page", ErrMalformedNode, id)
		}
		if h.prevPage != prev {
			return nil, fmt.Errorf("%w: page %d has prev=%d, expected %d", ErrMalformedNode, id, h.prevPage, prev)
		}
		out = append(out, payload...)
		prev = id
		id = h.nextPage
	}
	return out, nil
}
