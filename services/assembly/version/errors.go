// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package version

import (
	"errors"
	"fmt"
)

var (
	// ErrBlockNotFound indicates the block has no history at all.
	ErrBlockNotFound = errors.New("block has no version history")

	// ErrVersionNotFound indicates the requested version number does not
	// exist for the block.
	ErrVersionNotFound = errors.New("version not found")

	// ErrBranchNotFound indicates the named branch does not exist.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrBranchExists indicates a branch with that name already exists.
	ErrBranchExists = errors.New("branch already exists")

	// ErrEmptyCommit indicates a commit with no content change.
	ErrEmptyCommit = errors.New("commit does not change content")
)

// VersionError annotates a sentinel with the block and version involved.
type VersionError struct {
	BlockID string
	Version int
	Err     error
}

func (e *VersionError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("block %s version %d: %v", e.BlockID, e.Version, e.Err)
	}
	return fmt.Sprintf("block %s: %v", e.BlockID, e.Err)
}

func (e *VersionError) Unwrap() error {
	return e.Err
}
