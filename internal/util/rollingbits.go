package util

import (
	"github.com/bits-and-blooms/bitset"
)

// RollingBits counts true and false values over a window of the most recent entries using a BitSet.
//
// This type is not concurrency safe.
type RollingBits struct {
	bitSet *bitset.BitSet
	size   uint

	// Index to write the next entry to
	currentIndex uint
	occupiedBits uint
	trues        uint
}

// NewRollingBits returns a RollingBits holding up to size entries. A size of 0 is treated as 1.
func NewRollingBits(size uint) *RollingBits {
	if size == 0 {
		size = 1
	}
	return &RollingBits{
		bitSet: bitset.New(size),
		size:   size,
	}
}

// Add records the value, evicting the oldest entry once the window is full, and returns the evicted value, else -1 if
// nothing was evicted.
func (r *RollingBits) Add(value bool) int {
	previousValue := -1
	if r.occupiedBits < r.size {
		r.occupiedBits++
	} else if r.bitSet.Test(r.currentIndex) {
		previousValue = 1
	} else {
		previousValue = 0
	}

	r.bitSet.SetTo(r.currentIndex, value)
	r.currentIndex = r.indexAfter(r.currentIndex)

	if value && previousValue != 1 {
		r.trues++
	} else if !value && previousValue == 1 {
		r.trues--
	}
	return previousValue
}

func (r *RollingBits) indexAfter(index uint) uint {
	if index == r.size-1 {
		return 0
	}
	return index + 1
}

// Len returns the number of entries currently in the window.
func (r *RollingBits) Len() uint {
	return r.occupiedBits
}

// Trues returns the number of true entries in the window.
func (r *RollingBits) Trues() uint {
	return r.trues
}

// Falses returns the number of false entries in the window.
func (r *RollingBits) Falses() uint {
	return r.occupiedBits - r.trues
}

// TrueRate returns the percentage of true entries in the window.
func (r *RollingBits) TrueRate() uint {
	return Percent(r.trues, r.occupiedBits)
}

// Reset clears the window.
func (r *RollingBits) Reset() {
	r.bitSet.ClearAll()
	r.currentIndex = 0
	r.occupiedBits = 0
	r.trues = 0
}
