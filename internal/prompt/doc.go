// Package prompt asks the operator for missing settings and for the groups to migrate.
package prompt
