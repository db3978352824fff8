package retrieval

import (
	"math"
	"sort"
	"strings"
	"sync"

	"menuagent/catalog"
)

// Params are the BM25 tunables.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns the standard Okapi values, k1 = 1.5 and b = 0.75.
func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75}
}

// Metadata locates a document's item in the catalog.
type Metadata struct {
	Hall    string
	Station string
	Item    catalog.FoodItem
}

// Document is one indexed item occurrence.
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
	Length   int
}

// Result is a scored search hit.
type Result struct {
	ID       string
	Text     string
	Metadata Metadata
	Score    float64
}

// SearchOptions are the hard gates applied before scoring.
type SearchOptions struct {
	// Hall keeps only documents from this hall (case-insensitive exact).
	Hall string
	// Dietary keeps only documents whose item satisfies every restriction.
	Dietary []string
}

type posting struct {
	doc int
	tf  int
}

// Index is an append-only document store with BM25 statistics. Documents
// are added during construction; the statistics are computed by Build,
// or lazily by the first query. Once built, any number of goroutines may
// search concurrently.
type Index struct {
	params       Params
	restrictions Restrictions

	mu       sync.RWMutex
	docs     []Document
	postings map[string][]posting
	idf      map[string]float64
	avgLen   float64
	built    bool
}

// Option configures an Index.
type Option func(*Index)

// WithParams overrides the BM25 parameters.
func WithParams(p Params) Option {
	return func(ix *Index) { ix.params = p }
}

// WithRestrictions sets the tables used for dietary gates.
func WithRestrictions(r Restrictions) Option {
	return func(ix *Index) { ix.restrictions = r }
}

func NewIndex(opts ...Option) *Index {
	ix := &Index{
		params:       DefaultParams(),
		restrictions: DefaultRestrictions(),
		postings:     make(map[string][]posting),
		idf:          make(map[string]float64),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func NewIndexWithParams(p Params) *Index {
	return NewIndex(WithParams(p))
}

// Add appends a document. Ids are not deduplicated. The index must be
// rebuilt (explicitly or lazily) before the document is searchable.
func (ix *Index) Add(id, text string, md Metadata) {
	tokens := Tokenize(text)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ord := len(ix.docs)
	ix.docs = append(ix.docs, Document{ID: id, Text: text, Metadata: md, Length: len(tokens)})

	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	for term, n := range tf {
		ix.postings[term] = append(ix.postings[term], posting{doc: ord, tf: n})
	}
	ix.built = false
}

// Build recomputes idf and the average document length from the current
// document set. It is idempotent.
func (ix *Index) Build() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.build()
}

func (ix *Index) build() {
	n := len(ix.docs)
	ix.idf = make(map[string]float64, len(ix.postings))
	ix.avgLen = 0
	if n == 0 {
		ix.built = true
		return
	}

	total := 0
	for _, d := range ix.docs {
		total += d.Length
	}
	ix.avgLen = float64(total) / float64(n)

	for term, list := range ix.postings {
		df := float64(len(list))
		ix.idf[term] = math.Log((float64(n)-df+0.5)/(df+0.5) + 1)
	}
	ix.built = true
}

// rlock takes the read lock, building the index first if needed.
func (ix *Index) rlock() {
	ix.mu.RLock()
	if ix.built {
		return
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	if !ix.built {
		ix.build()
	}
	ix.mu.Unlock()
	ix.mu.RLock()
}

// IDF returns the inverse document frequency of term, or 0 if the term
// was never indexed.
func (ix *Index) IDF(term string) float64 {
	ix.rlock()
	defer ix.mu.RUnlock()
	return ix.idf[strings.ToLower(term)]
}

// AvgLength returns the mean document length.
func (ix *Index) AvgLength() float64 {
	ix.rlock()
	defer ix.mu.RUnlock()
	return ix.avgLen
}

// Search ranks documents against query. Documents rejected by opts are
// never scored; documents that score zero are not returned. Results are
// ordered by descending score with ties kept in insertion order.
func (ix *Index) Search(query string, topK int, opts SearchOptions) []Result {
	if topK <= 0 {
		return nil
	}
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	ix.rlock()
	defer ix.mu.RUnlock()

	gate := make(map[int]bool)
	admit := func(ord int) bool {
		ok, seen := gate[ord]
		if !seen {
			ok = ix.admits(ix.docs[ord].Metadata, opts)
			gate[ord] = ok
		}
		return ok
	}

	norm := math.Max(ix.avgLen, 1)
	k1, b := ix.params.K1, ix.params.B
	scores := make(map[int]float64)
	for _, term := range terms {
		idf := ix.idf[term]
		if idf == 0 {
			continue
		}
		for _, p := range ix.postings[term] {
			if !admit(p.doc) {
				continue
			}
			tf := float64(p.tf)
			dl := float64(ix.docs[p.doc].Length)
			scores[p.doc] += idf * tf * (k1 + 1) / (tf + k1*(1-b+b*dl/norm))
		}
	}

	ords := make([]int, 0, len(scores))
	for ord, s := range scores {
		if s > 0 {
			ords = append(ords, ord)
		}
	}
	sort.Slice(ords, func(i, j int) bool {
		si, sj := scores[ords[i]], scores[ords[j]]
		if si != sj {
			return si > sj
		}
		return ords[i] < ords[j]
	})
	if len(ords) > topK {
		ords = ords[:topK]
	}

	results := make([]Result, len(ords))
	for i, ord := range ords {
		d := ix.docs[ord]
		results[i] = Result{ID: d.ID, Text: d.Text, Metadata: d.Metadata, Score: scores[ord]}
	}
	return results
}

func (ix *Index) admits(md Metadata, opts SearchOptions) bool {
	if opts.Hall != "" && !strings.EqualFold(md.Hall, opts.Hall) {
		return false
	}
	if len(opts.Dietary) > 0 && !ix.restrictions.Matches(md.Item, opts.Dietary) {
		return false
	}
	return true
}

// Halls returns the distinct hall names in the order they were first added.
func (ix *Index) Halls() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seen := make(map[string]bool)
	var halls []string
	for _, d := range ix.docs {
		h := d.Metadata.Hall
		if h != "" && !seen[h] {
			seen[h] = true
			halls = append(halls, h)
		}
	}
	return halls
}

// HallItems returns every document's metadata for hall (case-insensitive).
func (ix *Index) HallItems(hall string) []Metadata {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var items []Metadata
	for _, d := range ix.docs {
		if strings.EqualFold(d.Metadata.Hall, hall) {
			items = append(items, d.Metadata)
		}
	}
	return items
}

// Len returns the number of documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Restrictions returns the tables the index filters with.
func (ix *Index) Restrictions() Restrictions {
	return ix.restrictions
}
