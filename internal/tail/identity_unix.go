//go:build unix

package tail

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileIdentity returns "dev:ino" for the open file, or "" if it cannot be
// determined.
func fileIdentity(f *os.File, _ os.FileInfo) string {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return ""
	}
	return fmt.Sprintf("%d:%d", st.Dev, st.Ino)
}
