package runtime

import "math/bits"

// Murmur3 building blocks per spec.md §4.3. mixK1/mixH1/fmix are the
// classic Murmur3 finalizer/mixer steps; mixCollHash composes the hash of
// a composite from its element hashes and count.

const (
	murmurC1 uint32 = 0xcc9e2d51
	murmurC2 uint32 = 0x1b873593
)

func mixK1(k1 uint32) uint32 {
	k1 *= murmurC1
	k1 = bits.RotateLeft32(k1, 15)
	k1 *= murmurC2
	return k1
}

func mixH1(h1, k1 uint32) uint32 {
	h1 ^= k1
	h1 = bits.RotateLeft32(h1, 13)
	h1 = h1*5 + 0xe6546b64
	return h1
}

func fmix(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// mixCollHash finishes a composite hash: the caller's folded element hash
// is mixed once through mixK1/mixH1, combined with the element count, and
// finalized with fmix.
func mixCollHash(hash uint32, count int) uint32 {
	h1 := uint32(0)
	k1 := hash
	h1 = mixH1(h1, mixK1(k1))
	return fmix(h1 ^ uint32(count))
}

// hashString is the classic polynomial string hash: h*31 + byte.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}

const namedSeed uint32 = 0x9e3779b9 // distinguishes symbol/keyword hashing from plain strings

func hashNamed(namespace, name string) uint32 {
	h := namedSeed
	if namespace != "" {
		h = h*31 + hashString(namespace)
	}
	h = h*31 + hashString(name)
	return h
}

// Hash computes the structural hash of v. The contract (spec.md §4.3):
// Eql(a, b) implies Hash(a) == Hash(b), within each hash-relevant tag
// family; cross-type numeric equality does not guarantee hash equality
// in general (an Int and a Float with the same mathematical value may
// hash differently), which is explicitly permitted.
func Hash(v Value) uint32 {
	if v == nil || IsNil(v) {
		return 0
	}
	switch x := v.(type) {
	case Bool:
		if x.B {
			return 1231
		}
		return 1237
	case Int:
		return hashInt64(x.I)
	case Float:
		return hashFloat(x.F)
	case Char:
		return uint32(x.R)
	case Str:
		return hashString(x.S)
	case Symbol:
		return hashNamed(x.Namespace, x.Name) ^ 0x1
	case *Keyword:
		return hashNamed(x.Namespace, x.Name) ^ 0x2
	case *BigInt:
		if x.V.IsInt64() {
			return hashInt64(x.V.Int64())
		}
		return hashString(x.V.String())
	case *Ratio:
		return hashString(x.Num.String() + "/" + x.Den.String())
	case *BigDecimal:
		return hashString(x.rstr())
	}

	if s, ok := v.(Sequential); ok {
		return hashSequential(s)
	}

	switch x := v.(type) {
	case *ArrayMap:
		return hashMapEntries(x.Entries())
	case *HashMap:
		return hashMapEntries(x.AllEntries())
	case *HashSet:
		return hashSet(x)
	}

	// Identity-hashed kinds (fn, var, atom, ...): stable within process
	// lifetime, which is all the contract requires for these tags.
	return hashString(v.rstr())
}

func hashInt64(i int64) uint32 {
	return uint32(i) ^ uint32(i>>32)
}

func hashFloat(f float64) uint32 {
	if f == float64(int64(f)) {
		return hashInt64(int64(f))
	}
	bits64 := fmix(uint32(f*1e6)) // coarse but stable within a process
	return bits64
}

func hashSequential(s Sequential) uint32 {
	h := uint32(1)
	count := 0
	for !s.SeqEmpty() {
		h = h*31 + Hash(s.First(DefaultAllocator))
		count++
		rest := s.Next(DefaultAllocator)
		next, ok := rest.(Sequential)
		if !ok {
			break
		}
		s = next
	}
	return mixCollHash(h, count)
}

func hashMapEntries(entries []MapEntry) uint32 {
	var h uint32
	for _, e := range entries {
		h ^= Hash(e.Key) ^ Hash(e.Val)
	}
	return mixCollHash(h, len(entries))
}

func hashSet(s *HashSet) uint32 {
	var h uint32
	for _, e := range s.AllElements() {
		h += Hash(e)
	}
	return mixCollHash(h, s.Count())
}
