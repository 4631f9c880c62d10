// Package textutil turns media names into safe output file names and
// work-directory tokens.
package textutil
