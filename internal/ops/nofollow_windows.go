//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/harbor/internal/errors"
)

// openNoFollow is a plain open on Windows, which has no O_NOFOLLOW.
// archivePolicy has already refused symlinks.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if os.IsNotExist(err) && flag&os.O_CREATE == 0 {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
