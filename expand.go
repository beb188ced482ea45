package aksara

import (
	"unicode"
	"unicode/utf8"
)

// SynonymEntry maps a domain term to its ordered alternate phrasings.
type SynonymEntry struct {
	Term       string
	Alternates []string
}

// SynonymTable is an ordered list of term → alternates mappings used for
// query expansion. Order matters: entries are scanned in table order and
// alternates emit variants in their listed order.
//
// The table is a content-curation asset; swap in a domain-specific one via
// WithSynonyms.
type SynonymTable []SynonymEntry

// DefaultSynonyms returns the built-in table for Indonesian campus
// terminology.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		{Term: "program studi", Alternates: []string{"prodi", "jurusan"}},
		{Term: "biaya", Alternates: []string{"ukt", "spp", "biaya pendidikan"}},
		{Term: "pendaftaran", Alternates: []string{"admisi", "penerimaan"}},
		{Term: "syarat", Alternates: []string{"persyaratan", "ketentuan"}},
		{Term: "beasiswa", Alternates: []string{"bantuan biaya", "keringanan ukt"}},
		{Term: "jadwal", Alternates: []string{"kalender akademik", "agenda"}},
		{Term: "dosen", Alternates: []string{"pengajar", "staf akademik"}},
	}
}

// defaultFanOut caps the variant count when the caller passes fanOut <= 0.
const defaultFanOut = 5

// Expand builds the query variant list: the unmodified query first, then one
// variant per synonym substitution in table order, capped at fanOut. Term
// matching is case-insensitive; only the first occurrence is substituted.
// The result is never empty: the original query is always variant 0.
func (t SynonymTable) Expand(query string, fanOut int) []string {
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	variants := []string{query}
	if fanOut == 1 {
		return variants
	}

	for _, e := range t {
		start, end, ok := foldIndex(query, e.Term)
		if !ok {
			continue
		}
		for _, alt := range e.Alternates {
			variants = append(variants, query[:start]+alt+query[end:])
			if len(variants) >= fanOut {
				return variants
			}
		}
	}
	return variants
}

// foldIndex returns the byte bounds of the first case-insensitive occurrence
// of term in s. Matching is rune by rune, so the bounds are valid offsets
// into s even when case folding changes a rune's encoded length.
func foldIndex(s, term string) (start, end int, ok bool) {
	if term == "" {
		return 0, 0, false
	}
	for i := range s {
		if n, ok := foldMatch(s[i:], term); ok {
			return i, i + n, true
		}
	}
	return 0, 0, false
}

// foldMatch reports how many leading bytes of s case-fold to term.
func foldMatch(s, term string) (int, bool) {
	n := 0
	for _, tr := range term {
		sr, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return 0, false
		}
		if sr != tr && unicode.ToLower(sr) != unicode.ToLower(tr) {
			return 0, false
		}
		n += size
	}
	return n, true
}
