package executor

import (
	"errors"
	"os/exec"
)

// isNotFound reports whether err indicates the matcher binary could not
// be spawned at all (as opposed to running and exiting non-zero).
func isNotFound(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	return false
}
