//go:build windows

package lock

import (
	"os"
	"syscall"
	"unsafe"
)

var (
	kernel32       = syscall.NewLazyDLL("kernel32.dll")
	lockFileExProc = kernel32.NewProc("LockFileEx")
	unlockFileProc = kernel32.NewProc("UnlockFile")
)

const lockfileExclusiveLock = 2

func lock(file *os.File) error {
	var overlapped syscall.Overlapped

	// Blocking exclusive lock over the whole file
	ret, _, err := lockFileExProc.Call(
		uintptr(file.Fd()),
		uintptr(lockfileExclusiveLock),
		0,
		0xFFFFFFFF,
		0xFFFFFFFF,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	if ret == 0 {
		return err
	}
	return nil
}

func unlock(file *os.File) error {
	ret, _, err := unlockFileProc.Call(
		uintptr(file.Fd()),
		0, 0,
		0xFFFFFFFF, 0xFFFFFFFF,
	)
	if ret == 0 {
		return err
	}
	return nil
}
