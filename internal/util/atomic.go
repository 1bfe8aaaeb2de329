// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tempPrefix marks the scratch files AtomicWriteFile leaves next to its
// target while writing.
const tempPrefix = ".tmp-"

// AtomicWriteFile replaces path with data so that readers observe either the
// previous contents or all of data. The bytes go to a synced scratch file in
// the same directory, which is then renamed over path; a watcher on the
// directory sees one create or rename for path.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, tempPrefix)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	scratch := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(scratch)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", scratch, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", scratch, err)
	}
	// Windows refuses to rename an open file.
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", scratch, err)
	}
	if err = os.Chmod(scratch, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", scratch, err)
	}
	if err = os.Rename(scratch, target); err != nil {
		return fmt.Errorf("rename over %s: %w", target, err)
	}
	return nil
}

// IsTempFile reports whether name is one of AtomicWriteFile's scratch files.
func IsTempFile(name string) bool {
	base := filepath.Base(name)
	return len(base) > len(tempPrefix) && strings.HasPrefix(base, tempPrefix)
}
