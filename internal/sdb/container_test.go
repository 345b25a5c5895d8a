package sdb

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTripIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.sdb")

	docs := map[string][]byte{
		"a.txt":          []byte("hi"),
		"dir/b.txt":      []byte("hello there"),
		"dir/sub/c.json": []byte(`{"ok":true}`),
	}

	c, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for p, b := range docs {
		if err := c.WriteDocument(p, b); err != nil {
			t.Fatalf("WriteDocument(%s): %v", p, err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rc, err := OpenRead(path, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()

	for p, want := range docs {
		id, found, err := rc.Resolve(p)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", p, err)
		}
		if !found {
			t.Fatalf("Resolve(%s): not found", p)
		}
		got, err := rc.Load(id)
		if err != nil {
			t.Fatalf("Load(%s): %v", p, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Load(%s) = %q, want %q", p, got, want)
		}
	}
}

func TestEmptyPayloadRepresentable(t *testing.T) {
	c, err := OpenMemory(Options{UseCompression: false})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := c.WriteDocument("empty.txt", nil); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	doc := c.docs[0]
	if doc.FirstPage == NoPage {
		t.Fatalf("expected a valid first page for an empty document")
	}

	h, payload, err := c.pager.readRawPage(doc.FirstPage)
	if err != nil {
		t.Fatalf("readRawPage: %v", err)
	}
	if h.payloadLen != 0 {
		t.Fatalf("payload_len = %d, want 0", h.payloadLen)
	}
	if h.nextPage != NoPage {
		t.Fatalf("expected a single-page chain, got next=%d", h.nextPage)
	}
	if len(payload) != 0 {
		t.Fatalf("payload = %v, want empty", payload)
	}
}

func TestHeaderFinalization(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.sdb")

	c, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.WriteDocument("a.txt", []byte("hi")); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	indexSlot, trieRootSlot, freeListSlot, ok := unmarshalFileHeader(raw[:HeaderSize])
	if !ok {
		t.Fatalf("magic mismatch")
	}
	if indexSlot.page == NoPage || indexSlot.version != 0 {
		t.Fatalf("index slot = %+v, want a real page and version 0", indexSlot)
	}
	if trieRootSlot.page == NoPage || trieRootSlot.version != 0 {
		t.Fatalf("trie root slot = %+v, want a real page and version 0", trieRootSlot)
	}
	if freeListSlot.page != NoPage || freeListSlot.version != 0 {
		t.Fatalf("free list slot = %+v, want (-1, 0)", freeListSlot)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, err := OpenMemory(DefaultOptions())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := c.WriteDocument("a.txt", []byte("hi")); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWriteDocumentAfterCloseFails(t *testing.T) {
	c, err := OpenMemory(DefaultOptions())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.WriteDocument("a.txt", []byte("hi")); err != ErrClosed {
		t.Fatalf("WriteDocument after close = %v, want ErrClosed", err)
	}
}

func TestDuplicatePathRejected(t *testing.T) {
	c, err := OpenMemory(DefaultOptions())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := c.WriteDocument("a.txt", []byte("one")); err != nil {
		t.Fatalf("first WriteDocument: %v", err)
	}
	err = c.WriteDocument("a.txt", []byte("two"))
	if !errors.Is(err, ErrDuplicatePath) {
		t.Fatalf("WriteDocument duplicate = %v, want ErrDuplicatePath", err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	c, err := OpenMemory(DefaultOptions())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := c.WriteDocument("", []byte("x")); err != ErrEmptyPath {
		t.Fatalf("WriteDocument(\"\") = %v, want ErrEmptyPath", err)
	}
}

func TestIndexSortStability(t *testing.T) {
	docs := []Document{
		{ID: [16]byte{9}, FirstPage: 0},
		{ID: [16]byte{1}, FirstPage: 1},
		{ID: [16]byte{5}, FirstPage: 2},
	}
	payload := marshalIndex(docs)
	decoded, err := unmarshalIndex(payload)
	if err != nil {
		t.Fatalf("unmarshalIndex: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("decoded %d docs, want 3", len(decoded))
	}
	for i := 1; i < len(decoded); i++ {
		if bytes.Compare(decoded[i-1].ID[:], decoded[i].ID[:]) >= 0 {
			t.Fatalf("index not sorted ascending by doc_id: %v then %v", decoded[i-1].ID, decoded[i].ID)
		}
	}
}

// scenario S1: single file, no compression.
func TestScenarioS1SingleFileNoCompression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1.sdb")

	c, err := Open(path, Options{UseCompression: false})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.WriteDocument("a.txt", []byte("hi")); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	wantMagic := []byte{0x55, 0xAA, 0xFE, 0xED, 0xFA, 0xCE, 0xDA, 0x7A}
	if !bytes.Equal(raw[:8], wantMagic) {
		t.Fatalf("magic = % X, want % X", raw[:8], wantMagic)
	}

	rc, err := OpenRead(path, Options{UseCompression: false})
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()

	id, found, err := rc.Resolve("a.txt")
	if err != nil || !found {
		t.Fatalf("Resolve(a.txt) = (%v, %v, %v)", id, found, err)
	}
	got, err := rc.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("Load = %q, want \"hi\"", got)
	}
}

// scenario S6: after close, re-opening for read yields exactly the inserted
// documents.
func TestScenarioS6CloseThenReadMatchesInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s6.sdb")

	input := map[string][]byte{
		"one.txt":   []byte("111"),
		"two.txt":   []byte("222"),
		"three.txt": []byte("333"),
	}

	c, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for p, b := range input {
		if err := c.WriteDocument(p, b); err != nil {
			t.Fatalf("WriteDocument(%s): %v", p, err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rc, err := OpenRead(path, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer rc.Close()

	if len(rc.docs) != len(input) {
		t.Fatalf("read back %d documents, want %d", len(rc.docs), len(input))
	}
	for p, want := range input {
		id, found, err := rc.Resolve(p)
		if err != nil || !found {
			t.Fatalf("Resolve(%s) = (%v, %v, %v)", p, id, found, err)
		}
		got, err := rc.Load(id)
		if err != nil || !bytes.Equal(got, want) {
			t.Fatalf("Load(%s) = (%q, %v), want %q", p, got, err, want)
		}
	}
}
