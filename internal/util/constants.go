// Package util provides stateless, thread-safe helpers shared across the
// Maus and MauZ codecs: byte-size constants, human-readable size formatting,
// and pooled buffers. The codecs' own data path does not use the pools.
package util

// Size constants for byte calculations.
const (
	KiB = 1 << 10 // 1024
	MiB = 1 << 20 // 1,048,576
	GiB = 1 << 30 // 1,073,741,824
	TiB = 1 << 40 // 1,099,511,627,776
)
