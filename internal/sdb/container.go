package sdb

import (
	"fmt"

	"github.com/google/uuid"
)

// Options configures a newly opened container.
type Options struct {
	// UseCompression enables Snappy compression of page payloads. The zero
	// value Options{} leaves compression off; DefaultOptions() turns it on.
	UseCompression bool
}

// DefaultOptions returns the standard default: compression enabled.
func DefaultOptions() Options {
	return Options{UseCompression: true}
}

// Container is the write-side driver: it owns page allocation,
// per-document ingestion, and header finalization.
//
// Grounded on db.DB's open/operate/close lifecycle shape, and on
// internal/storage/pager/superblock.go for "write placeholder header
// fields at open, rewrite them with final values at close".
type Container struct {
	store   storage
	pager   *pager
	trie    *trie
	docs    []Document
	seen    map[string]struct{}
	closed  bool
	options Options
}

// Open creates (truncating if necessary) the .sdb file at path and writes
// the placeholder file header.
func Open(path string, opts Options) (*Container, error) {
	store, err := openFileStorage(path)
	if err != nil {
		return nil, err
	}
	return openContainer(store, opts)
}

// OpenMemory creates an in-memory container, useful for tests that want to
// round-trip a container without touching the filesystem.
func OpenMemory(opts Options) (*Container, error) {
	return openContainer(newMemStorage(), opts)
}

func openContainer(store storage, opts Options) (*Container, error) {
	c := &Container{
		store:   store,
		pager:   newPager(store, opts.UseCompression),
		seen:    map[string]struct{}{},
		options: opts,
	}
	c.trie = newTrie(c.pager)

	placeholder := make([]byte, HeaderSize)
	marshalFileHeader(
		headerSlot{page: NoPage, version: 0},
		headerSlot{page: NoPage, version: 0},
		headerSlot{page: NoPage, version: 0},
		placeholder,
	)
	if _, err := store.WriteAt(placeholder, 0); err != nil {
		return nil, fmt.Errorf("%w: writing file header: %v", ErrIO, err)
	}
	return c, nil
}

// WriteDocument segments payload into a page chain, records a Document, and
// inserts reverse(logicalPath) into the trie.
func (c *Container) WriteDocument(logicalPath string, payload []byte) error {
	if c.closed {
		return ErrClosed
	}
	if logicalPath == "" {
		return ErrEmptyPath
	}
	if _, dup := c.seen[logicalPath]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, logicalPath)
	}

	firstPage, err := writeDocumentChain(c.pager, payload)
	if err != nil {
		return fmt.Errorf("writing document %s: %w", logicalPath, err)
	}

	id := uuid.New()
	doc := Document{
		FirstPage:      firstPage,
		CurrentVersion: 0,
		Paths:          []string{logicalPath},
	}
	copy(doc.ID[:], id[:])
	c.docs = append(c.docs, doc)
	c.seen[logicalPath] = struct{}{}

	if err := c.trie.Insert(reverseString(logicalPath), doc.ID); err != nil {
		return fmt.Errorf("inserting %s into trie: %w", logicalPath, err)
	}
	return nil
}

// Close allocates and writes the INDEX page, then rewrites the file header
// to point at the index page and trie root.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	indexPage := c.pager.allocatePage()
	if err := c.pager.writeRawPage(indexPage, marshalIndex(c.docs), flagIndex, 0, NoPage, NoPage); err != nil {
		return fmt.Errorf("writing index page: %w", err)
	}

	finalHeader := make([]byte, HeaderSize)
	marshalFileHeader(
		headerSlot{page: indexPage, version: 0},
		headerSlot{page: c.trie.rootPage, version: 0},
		headerSlot{page: NoPage, version: 0},
		finalHeader,
	)
	if _, err := c.store.WriteAt(finalHeader, 0); err != nil {
		return fmt.Errorf("%w: rewriting file header: %v", ErrIO, err)
	}
	if err := c.store.Flush(); err != nil {
		return fmt.Errorf("%w: flushing header: %v", ErrIO, err)
	}
	c.closed = true
	return c.store.Close()
}

// reverseString reverses s character-wise (by Unicode code point, not raw
// byte), so multi-byte UTF-8 paths round-trip correctly.
func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// ReadContainer is the read-side driver: resolve a logical path to a
// document ID via the trie, then load the document's bytes via its page
// chain.
type ReadContainer struct {
	store  storage
	pager  *pager
	trie   *trie
	docs   map[[16]byte]Document
	byPath map[string][16]byte
}

// OpenRead opens path for reading: it validates the magic, then loads the
// index and trie root recorded in the file header.
func OpenRead(path string, opts Options) (*ReadContainer, error) {
	store, err := openFileStorageReadOnly(path)
	if err != nil {
		return nil, err
	}
	return openReadContainer(store, opts)
}

func openReadContainer(store storage, opts Options) (*ReadContainer, error) {
	hdr := make([]byte, HeaderSize)
	if _, err := store.ReadAt(hdr, 0); err != nil {
		return nil, fmt.Errorf("%w: reading file header: %v", ErrIO, err)
	}
	indexSlot, trieRootSlot, _, ok := unmarshalFileHeader(hdr)
	if !ok {
		return nil, ErrMagicMismatch
	}

	p := newPager(store, opts.UseCompression)
	rc := &ReadContainer{
		store:  store,
		pager:  p,
		trie:   &trie{pager: p, rootPage: trieRootSlot.page},
		docs:   map[[16]byte]Document{},
		byPath: map[string][16]byte{},
	}

	if indexSlot.page != NoPage {
		_, payload, err := p.readRawPage(indexSlot.page)
		if err != nil {
			return nil, fmt.Errorf("reading index page: %w", err)
		}
		docs, err := unmarshalIndex(payload)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			rc.docs[d.ID] = d
			for _, path := range d.Paths {
				rc.byPath[path] = d.ID
			}
		}
	}
	return rc, nil
}

// Resolve looks up logicalPath via the reverse trie and returns the
// document ID terminating there, if any.
func (rc *ReadContainer) Resolve(logicalPath string) (uuid.UUID, bool, error) {
	id, found, err := rc.trie.Lookup(reverseString(logicalPath))
	if err != nil {
		return uuid.UUID{}, false, err
	}
	if !found {
		return uuid.UUID{}, false, nil
	}
	return uuid.UUID(id), true, nil
}

// Load reconstructs the full payload for a document ID by walking its page
// chain.
func (rc *ReadContainer) Load(id uuid.UUID) ([]byte, error) {
	doc, ok := rc.docs[[16]byte(id)]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return readDocumentChain(rc.pager, doc.FirstPage)
}

// Close releases the underlying file handle.
func (rc *ReadContainer) Close() error {
	return rc.store.Close()
}
