//go:build windows

package tail

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// fileIdentity returns the volume serial number and file index for the open
// file, or "" if they cannot be determined.
func fileIdentity(f *os.File, _ os.FileInfo) string {
	var fi windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(windows.Handle(f.Fd()), &fi); err != nil {
		return ""
	}
	return fmt.Sprintf("%x:%x%08x", fi.VolumeSerialNumber, fi.FileIndexHigh, fi.FileIndexLow)
}
