// Package amity writes migrated entities into the destination social service.
//
// Administrative calls authenticate with the admin token; calls performed on
// behalf of a migrated user authenticate with that user's session token.
// Every request passes through the destination scheduler.
package amity
