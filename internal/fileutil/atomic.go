// Copyright (c) 2024 John Mylchreest <jmylchreest@gmail.com>
//
// This file is part of blsforme.
//
// blsforme is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// blsforme is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with blsforme. If not, see <https://www.gnu.org/licenses/>.

package fileutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// hashFile returns the sha256 digest of path's contents, or ("", nil) if
// path does not exist.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("fileutil: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fileutil: hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Unchanged reports whether src and dest already have identical contents,
// so a caller can skip a copy entirely.
func Unchanged(src, dest string) (bool, error) {
	srcHash, err := hashFile(src)
	if err != nil {
		return false, err
	}
	destHash, err := hashFile(dest)
	if err != nil {
		return false, err
	}
	return destHash != "" && srcHash == destHash, nil
}

// WriteBytesAtomic writes data to path the same atomic way CopyAtomicVFAT
// copies a file, but compares against path's existing content directly
// rather than hashing a separate source file. Returns whether a write
// actually happened.
func WriteBytesAtomic(path string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil {
		if sumBytes(existing) == sumBytes(data) {
			return false, nil
		}
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("fileutil: read %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("fileutil: mkdir %s: %w", filepath.Dir(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return false, fmt.Errorf("fileutil: write %s: %w", tmp, err)
	}
	if f, err := os.OpenFile(tmp, os.O_WRONLY, 0o644); err == nil {
		_ = f.Sync()
		f.Close()
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("fileutil: rename %s to %s: %w", tmp, path, err)
	}
	return true, nil
}

func sumBytes(b []byte) string {
	h := sha256.Sum256(b)
	return fmt.Sprintf("%x", h)
}

// CopyAtomicVFAT copies src to dest by writing to dest+".tmp" in the same
// directory, fsyncing, then renaming over dest — VFAT guarantees rename is
// atomic per directory entry, so readers never observe a partial file.
// Skips the copy entirely when dest already has identical contents.
func CopyAtomicVFAT(src, dest string) error {
	unchanged, err := Unchanged(src, dest)
	if err != nil {
		return err
	}
	if unchanged {
		log.Debug().Str("dest", dest).Msg("skipping copy, contents unchanged")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("fileutil: mkdir %s: %w", filepath.Dir(dest), err)
	}

	tmp := dest + ".tmp"
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("fileutil: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("fileutil: create %s: %w", tmp, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("fileutil: copy %s to %s: %w", src, tmp, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("fileutil: sync %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fileutil: close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fileutil: rename %s to %s: %w", tmp, dest, err)
	}

	log.Debug().Str("src", src).Str("dest", dest).Msg("copied file atomically")
	return nil
}
