//go:build !unix && !windows

package tail

import "os"

// fileIdentity is not available on this platform; rotation is detected by
// path changes and shrinking size only.
func fileIdentity(_ *os.File, _ os.FileInfo) string {
	return ""
}
