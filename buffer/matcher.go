package buffer

// Indexer maps an address to a set index.
type Indexer interface {
	Index(a Address) uint64
}

// IndexerFunc adapts a function to the Indexer interface.
type IndexerFunc func(a Address) uint64

// Index calls f.
func (f IndexerFunc) Index(a Address) uint64 {
	return f(a)
}

// BitFieldIndexer takes the inclusive address bit range [Lo, Hi] as the set
// index.
type BitFieldIndexer struct {
	Lo, Hi int
}

// Index extracts the bit field.
func (i BitFieldIndexer) Index(a Address) uint64 {
	return a.Bits().Field(i.Lo, i.Hi).Uint64()
}

// Matcher decides whether an entry holds an address and stamps the address
// tag into freshly allocated entries.
type Matcher interface {
	Matches(e Entry, a Address) bool
	AssignTag(e Entry, a Address) Entry
}

// TagMatcher keeps the inclusive address bit range [Lo, Hi] in the entry
// field named Field.
type TagMatcher struct {
	Field  string
	Lo, Hi int
}

func (m TagMatcher) tag(e Entry, a Address) Entry {
	lo, hi := e.Layout().Range(m.Field)
	return e.WithBits(lo, hi, a.Bits().Field(m.Lo, m.Hi))
}

// Matches compares the stored tag with the address.
func (m TagMatcher) Matches(e Entry, a Address) bool {
	return m.tag(e, a).Equal(e)
}

// AssignTag returns the entry with the address tag stored.
func (m TagMatcher) AssignTag(e Entry, a Address) Entry {
	return m.tag(e, a)
}
