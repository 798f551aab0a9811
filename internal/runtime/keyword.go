package runtime

import "sync"

// keywordTable is the process-wide, mutex-guarded keyword intern table
// (spec.md §3.8, resolved per the Open Question in spec.md §9: treated as
// mutex-protected, not single-threaded).
type keywordTable struct {
	mu    sync.Mutex
	table map[string]map[string]*Keyword
}

var keywords = &keywordTable{table: map[string]map[string]*Keyword{}}

// InternKeyword returns the canonical *Keyword for (namespace, name); two
// calls with equal text return the identical pointer.
func InternKeyword(namespace, name string) *Keyword {
	keywords.mu.Lock()
	defer keywords.mu.Unlock()
	byName, ok := keywords.table[namespace]
	if !ok {
		byName = map[string]*Keyword{}
		keywords.table[namespace] = byName
	}
	kw, ok := byName[name]
	if !ok {
		kw = &Keyword{Namespace: namespace, Name: name}
		byName[name] = kw
	}
	return kw
}

// KeywordInternCount reports how many distinct keywords are interned.
func KeywordInternCount() int {
	keywords.mu.Lock()
	defer keywords.mu.Unlock()
	n := 0
	for _, byName := range keywords.table {
		n += len(byName)
	}
	return n
}
