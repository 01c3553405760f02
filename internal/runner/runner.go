// Package runner abstracts every side-effecting operation the manager and
// bootloader layers perform, so a --dry-run invocation can log the same
// mounts, writes, copies and removals a real one would take without
// touching disk.
package runner

import (
	"os"

	"github.com/AerynOS/blsforme/internal/fileutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Runner defines the interface for executing operations
type Runner interface {
	WriteFile(path string, content []byte, perm os.FileMode, description string) error
	CopyFile(src, dest, description string) error
	MkdirAll(path string, perm os.FileMode, description string) error
	Remove(path, description string) error
	RemoveAll(path, description string) error
	Mount(source, target, fstype string, flags uintptr, data, description string) error
	Unmount(target string, flags int, description string) error
	IsDryRun() bool
}

// RealRunner executes operations for real
type RealRunner struct{}

// WriteFile writes content to path atomically, skipping the write entirely
// when path already holds identical content.
func (r *RealRunner) WriteFile(path string, content []byte, perm os.FileMode, description string) error {
	log.Debug().
		Str("path", path).
		Str("description", description).
		Int("size", len(content)).
		Msg("Writing file")

	wrote, err := fileutil.WriteBytesAtomic(path, content)
	if err != nil {
		return err
	}
	if wrote {
		return os.Chmod(path, perm)
	}
	return nil
}

// CopyFile copies src to dest atomically via fileutil.CopyAtomicVFAT,
// skipping the copy when dest already holds src's contents.
func (r *RealRunner) CopyFile(src, dest, description string) error {
	log.Debug().
		Str("src", src).
		Str("dest", dest).
		Str("description", description).
		Msg("Copying file")

	return fileutil.CopyAtomicVFAT(src, dest)
}

func (r *RealRunner) MkdirAll(path string, perm os.FileMode, description string) error {
	log.Debug().
		Str("path", path).
		Str("description", description).
		Msg("Creating directory")

	return os.MkdirAll(path, perm)
}

func (r *RealRunner) Remove(path, description string) error {
	log.Debug().
		Str("path", path).
		Str("description", description).
		Msg("Removing file")

	return os.Remove(path)
}

func (r *RealRunner) RemoveAll(path, description string) error {
	log.Debug().
		Str("path", path).
		Str("description", description).
		Msg("Removing directory tree")

	return os.RemoveAll(path)
}

func (r *RealRunner) Mount(source, target, fstype string, flags uintptr, data, description string) error {
	log.Debug().
		Str("source", source).
		Str("target", target).
		Str("fstype", fstype).
		Str("description", description).
		Msg("Mounting filesystem")

	return unix.Mount(source, target, fstype, flags, data)
}

func (r *RealRunner) Unmount(target string, flags int, description string) error {
	log.Debug().
		Str("target", target).
		Str("description", description).
		Msg("Unmounting filesystem")

	return unix.Unmount(target, flags)
}

func (r *RealRunner) IsDryRun() bool {
	return false
}

// DryRunner logs operations without executing them
type DryRunner struct{}

func (r *DryRunner) WriteFile(path string, content []byte, perm os.FileMode, description string) error {
	existing, err := os.ReadFile(path)
	changed := err != nil || string(existing) != string(content)

	event := log.Info()
	if !changed {
		event = log.Debug()
	}
	event.
		Str("path", path).
		Str("description", description).
		Int("size", len(content)).
		Bool("would_change", changed).
		Msg("[DRY RUN] Would write file")
	return nil
}

func (r *DryRunner) CopyFile(src, dest, description string) error {
	unchanged, err := fileutil.Unchanged(src, dest)
	if err != nil {
		return err
	}

	event := log.Info()
	if unchanged {
		event = log.Debug()
	}
	event.
		Str("src", src).
		Str("dest", dest).
		Str("description", description).
		Bool("would_change", !unchanged).
		Msg("[DRY RUN] Would copy file")
	return nil
}

func (r *DryRunner) MkdirAll(path string, perm os.FileMode, description string) error {
	log.Info().
		Str("path", path).
		Str("description", description).
		Msg("[DRY RUN] Would create directory")
	return nil
}

func (r *DryRunner) Remove(path, description string) error {
	log.Info().
		Str("path", path).
		Str("description", description).
		Msg("[DRY RUN] Would remove file")
	return nil
}

func (r *DryRunner) RemoveAll(path, description string) error {
	log.Info().
		Str("path", path).
		Str("description", description).
		Msg("[DRY RUN] Would remove directory tree")
	return nil
}

func (r *DryRunner) Mount(source, target, fstype string, flags uintptr, data, description string) error {
	log.Info().
		Str("source", source).
		Str("target", target).
		Str("fstype", fstype).
		Str("description", description).
		Msg("[DRY RUN] Would mount filesystem")
	return nil
}

func (r *DryRunner) Unmount(target string, flags int, description string) error {
	log.Info().
		Str("target", target).
		Str("description", description).
		Msg("[DRY RUN] Would unmount filesystem")
	return nil
}

func (r *DryRunner) IsDryRun() bool {
	return true
}

// New creates the appropriate runner based on dry-run mode
func New(dryRun bool) Runner {
	if dryRun {
		return &DryRunner{}
	}
	return &RealRunner{}
}
