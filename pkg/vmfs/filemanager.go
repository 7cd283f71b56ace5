// Package vmfs specifies the file-system bridge the old java.io natives
// call into, without providing a real OS-backed implementation — the
// filesystem itself is host infrastructure, not something this VM owns.
package vmfs

import "time"

// Attribute bits returned by FileManager.GetAttributes, matching the
// encoding old java.io.FileSystem natives expect.
const (
	AttrExists    = 1
	AttrRegular   = 2
	AttrDirectory = 4
)

// Access bits for FileManager.CheckAccess.
const (
	AccessRead    = 4
	AccessWrite   = 2
	AccessExecute = 1
)

// FileManager is the host-side contract old File natives are wired
// against. A VM embedder supplies one implementation; the VM never talks
// to the OS directly.
type FileManager interface {
	Canonicalize(path string) (string, error)
	GetAttributes(path string) (int, error)
	List(path string) ([]string, error)
	Rename(from, to string) error
	Delete(path string) error
	SetLastModifiedTime(path string, t time.Time) error
	SetReadOnly(path string) error
	CreateFileExclusively(path string) (bool, error)
	SetPermission(path string, access int, enable, ownerOnly bool) error
	GetSpace(path string, kind int) (int64, error)
	CheckAccess(path string, access int) (bool, error)
}

// Space kinds for FileManager.GetSpace.
const (
	SpaceTotal = 0
	SpaceFree  = 1
	SpaceUsable = 2
)
