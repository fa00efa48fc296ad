//go:build !pagesim_debug

package pagesim

const debugging = false

func assert(bool, string) {}
