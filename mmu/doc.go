// Package mmu models virtual memory on top of package pagesim:
// address translation through a TLB and a page table,
// demand paging of a file through a bounded set of resident pages,
// and contiguous allocation from a fixed pool with first, best or worst fit.
package mmu
