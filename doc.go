// Package bloomset provides bloom filter implementations for Go: standard,
// counting, and variants safe for concurrent use, all over a pluggable
// hashing abstraction.
//
// A bloom filter is a space-efficient probabilistic data structure that
// tests whether an element is a member of a set. False positive matches
// are possible, but false negatives are not – if the filter says an
// element is not present, it definitely is not. If it says an element
// might be present, it could be a false positive.
//
// # Architecture
//
// Every filter composes the same three parts:
//
// Hash strategy: a [Hasher] maps an item to two independent 64-bit
// digests. The default is xxh3 seeded twice ([XXH3Hasher]); [Murmur3Hasher]
// is provided as an alternative, and any implementation of the interface
// can be substituted with [WithHasher].
//
// Indexing: an [Indexer] derives the k probe positions from the digest
// pair by double hashing – pos_i = (h1 + i*h2) mod m – switching to
// enhanced double hashing with a quadratic term when k exceeds 7, where
// the plain form starts to cluster. Only two hash passes are ever needed
// per operation, regardless of k.
//
// Storage: a packed store of m single bits ([BitStore]) or m small
// saturating counters ([CounterStore]), each in a plain access mode and an
// atomic access mode ([AtomicBitStore], [AtomicCounterStore]).
//
// # Implementations
//
// [Filter] is a standard bloom filter for single-goroutine workloads:
// Add and Test only.
//
// [CountingFilter] replaces each bit with a small saturating counter
// (2–8 bits wide), which makes [CountingFilter.Remove] possible at the
// cost of memory and a documented hazard: removing an item that was never
// added silently corrupts counters shared with other items.
//
// [SharedFilter] and [SharedCountingFilter] expose the same contracts over
// the atomic stores. Any number of goroutines may operate on one shared
// instance with no locking on either side of the API. Atomicity is
// per-position: a Test racing an in-flight Add may see it partially
// applied and report the item absent. Once an Add has returned, the item
// is never reported absent again (unless removed).
//
// # Choosing parameters
//
// Construct filters from an expected item count and target false positive
// rate:
//
//	f, err := bloomset.New(1_000_000, 0.01)
//
// or with explicit m and k via [NewWithParams]. Parameters are fixed for
// the life of the filter; there is no resize. Filters with identical
// parameters (and hashers) can be merged into a union – see
// [Filter.UnionWith], [Union], [CountingFilter.MergeFrom],
// [SharedFilter.Merge] – which suits combining per-shard partial filters
// built by independent producers.
//
// # Serialization
//
// MarshalBinary on each filter type produces a fixed self-describing
// layout (parameters header, then the packed store words, little-endian);
// [UnmarshalBinary] and [UnmarshalCountingBinary] validate the header
// against the payload length before restoring, failing with
// [ErrCorruptData] on any inconsistency.
package bloomset
