// Package pagesim simulates fixed-capacity keyed-resource tables
// (page frames, TLB entries, buffer slots) with pluggable eviction policies.
//
// The pieces, leaves first:
//
//   - [Table]
//
//     A fixed array of slots, each holding at most one key and its payload.
//     It performs no policy logic and no I/O.
//
//   - [Policy]
//
//     Chooses which resident key to evict when a miss finds the table full.
//     Built-in variants are [FIFO], [LRU] and [Clock] (second chance).
//     A policy owns only its ordering metadata.
//
//   - [Engine]
//
//     Owns a table and a policy. Each access is classified as a
//     [Hit], a [Fault] (loaded into a free slot) or [Evicted]
//     (loaded after evicting a victim), and produces one [Event].
//
//   - [Recorder]
//
//     Aggregates events into hit, fault, eviction and writeback counts.
//
//   - [Tiered]
//
//     A small engine in front of a primary engine, e.g. a TLB over a page table.
//     A key that neither level nor the backing loader can resolve is
//     reported as [ErrResourceNotFound].
//
//   - [WorkingSet]
//
//     Tracks the distinct keys referenced within a trailing window Δ.
//
// Access algorithm (per request):
//
//   - Hit
//
//     The policy is notified and the resident payload is returned.
//
//   - Miss
//
//     The loader is called (the only suspension point). If it fails,
//     nothing changes. Otherwise, if the table is full the policy selects
//     a victim which is removed first; then the key is inserted and the
//     policy is notified, so a freshly loaded key is never the next LRU victim.
//
// Invariants:
//
//   - Occupancy ≤ capacity after every access.
//
//   - A key occupies at most one slot.
//
//   - [Table.Lookup] and [Engine.Lookup] never alter policy state.
//
// Engines are deterministic functions of their access trace
// and are not safe for concurrent use.
// For concurrent resource-pair contention see package arbiter.
package pagesim
