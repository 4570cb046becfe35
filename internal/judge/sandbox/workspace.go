package sandbox

import (
	"os"
	"path/filepath"

	appErr "codearena/pkg/errors"

	"github.com/google/uuid"
)

// DefaultWorkRoot is where per-job work directories are created.
const DefaultWorkRoot = "/tmp/code_manager"

// NewWorkDir creates a fresh per-job directory under root. The caller owns
// the directory and must remove it when the job ends, on every path.
func NewWorkDir(root string) (string, error) {
	if root == "" {
		root = DefaultWorkRoot
	}
	dir := filepath.Join(root, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "create work directory failed")
	}
	return dir, nil
}

// RemoveWorkDir deletes a per-job directory and everything under it.
func RemoveWorkDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
