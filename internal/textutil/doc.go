// Package textutil provides text helpers for deriving safe asset names and
// splitting generated scripts into narration units.
package textutil
