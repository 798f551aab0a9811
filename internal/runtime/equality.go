package runtime

// Eql is structural equality per spec.md §4.3. Comparing a lazy sequence
// with any sequential value realizes it (LazySeq.SeqEmpty forces it with
// DefaultAllocator); alloc.Alive() is not consulted, so there is no
// identity-only comparison of unrealized lazy sequences.
func Eql(alloc Allocator, a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}

	if IsNumeric(a) && IsNumeric(b) {
		c, err := Compare(a, b)
		return err == nil && c == 0
	}

	if as, aok := a.(Sequential); aok {
		if bs, bok := b.(Sequential); bok {
			return sequentialEql(alloc, as, bs)
		}
		return false
	}

	switch av := a.(type) {
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.B == bv.B
	case Char:
		bv, ok := b.(Char)
		return ok && av.R == bv.R
	case Str:
		bv, ok := b.(Str)
		return ok && av.S == bv.S
	case Symbol:
		bv, ok := b.(Symbol)
		return ok && av.Namespace == bv.Namespace && av.Name == bv.Name
	case *Keyword:
		bv, ok := b.(*Keyword)
		return ok && av == bv
	case *ArrayMap:
		return mapEql(alloc, av.Entries(), b)
	case *HashMap:
		return mapEql(alloc, av.AllEntries(), b)
	case *HashSet:
		return setEql(av, b)
	}

	// Identity-by-pointer for fn/protocol/multimethod/var/atom/volatile/
	// transient/regex values, and default fallback.
	return a == b
}

func sequentialEql(alloc Allocator, a, b Sequential) bool {
	// An empty realized lazy sequence equals every other empty
	// sequential, but Nil is excluded above already, so both a and b
	// being Sequential here already rules out the nil-vs-empty-lazy
	// distinction (spec.md §3.1).
	for {
		aEmpty, bEmpty := a.SeqEmpty(), b.SeqEmpty()
		if aEmpty != bEmpty {
			return false
		}
		if aEmpty {
			return true
		}
		if !Eql(alloc, a.First(alloc), b.First(alloc)) {
			return false
		}
		an, bn := a.Next(alloc), b.Next(alloc)
		if IsNil(an) && IsNil(bn) {
			return true
		}
		as, aok := an.(Sequential)
		bs, bok := bn.(Sequential)
		if !aok || !bok {
			return IsNil(an) == IsNil(bn)
		}
		a, b = as, bs
	}
}

func mapEql(alloc Allocator, entries []MapEntry, other Value) bool {
	get := func(k Value) (Value, bool) {
		switch m := other.(type) {
		case *ArrayMap:
			return m.Get(k)
		case *HashMap:
			return m.Get(k)
		}
		return nil, false
	}
	count := func() int {
		switch m := other.(type) {
		case *ArrayMap:
			return m.Count()
		case *HashMap:
			return m.Count()
		}
		return -1
	}
	if _, ok := other.(*ArrayMap); !ok {
		if _, ok := other.(*HashMap); !ok {
			return false
		}
	}
	if count() != len(entries) {
		return false
	}
	for _, e := range entries {
		v, ok := get(e.Key)
		if !ok || !Eql(alloc, v, e.Val) {
			return false
		}
	}
	return true
}

func setEql(s *HashSet, other Value) bool {
	o, ok := other.(*HashSet)
	if !ok || o.Count() != s.Count() {
		return false
	}
	for _, e := range s.AllElements() {
		if !o.Has(e) {
			return false
		}
	}
	return true
}
