package walker

import (
	"os"
	"syscall"
)

// deviceID extracts the POSIX device id from a FileInfo for the
// --mount/one-file-system check (spec §4.G step 5). ok is false on
// platforms whose Sys() does not expose *syscall.Stat_t (e.g. Windows),
// in which case the one-file-system policy is simply not enforced.
func deviceID(info os.FileInfo) (dev uint64, ok bool) {
	st, match := info.Sys().(*syscall.Stat_t)
	if !match {
		return 0, false
	}
	return uint64(st.Dev), true
}
