//go:build !unix && !windows

package lock

import "os"

// Platforms without advisory locks fall back to the in-process mutex.
func lock(*os.File) error   { return nil }
func unlock(*os.File) error { return nil }
