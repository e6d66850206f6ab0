package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/makehuman/mhlaunch/internal/config"
)

// ShouldFixWorkDir reports whether policy asks for the working directory to
// be moved to the executable's directory on goos. "auto" does so on Windows
// only, where the application is commonly started from a shortcut with an
// arbitrary working directory.
func ShouldFixWorkDir(policy, goos string) bool {
	switch policy {
	case config.WorkDirExecutable:
		return true
	case config.WorkDirInherit:
		return false
	default:
		return goos == "windows"
	}
}

// ExecutableDir resolves the directory holding exe, following symlinks so a
// launcher linked into a bin directory still finds its resources.
func ExecutableDir(exe string) string {
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

var errNoExecutable = errors.New(MsgNoExecutablePath)

func (l *Launcher) fixWorkDir() (string, error) {
	exe, err := l.executable()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errNoExecutable, err)
	}
	dir := ExecutableDir(exe)
	if err := l.chdir(dir); err != nil {
		return "", fmt.Errorf("failed to change directory to %s: %w", dir, err)
	}
	return dir, nil
}

func defaultChdir(dir string) error {
	return os.Chdir(dir)
}
