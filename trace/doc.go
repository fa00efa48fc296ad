// Package trace produces page reference strings:
// the textbook strings used to teach replacement policies,
// parsed strings, reproducible synthetic workloads
// and Lua-scripted workloads.
package trace
