// Package checkpoint records which source posts finished migrating so later
// runs can skip their reaction and comment walks. Records live in memory for
// the duration of a run or in Redis across runs.
package checkpoint
