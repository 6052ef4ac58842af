// Package pagination walks cursor-paginated remote listings one page at a time.
package pagination
