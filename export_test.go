// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jalloc

// SetMaxCount sets the limit on length counters to n, and returns a function
// that restores the previous limit.
func SetMaxCount(n int) func() {
	old := maxCount
	maxCount = n
	return func() { maxCount = old }
}

// Sizes charged to the quota for each value.
const (
	ValueSize = valueSize
	ShellSize = shellSize
)

// WriteError exposes writeError for testing.
var WriteError = writeError
