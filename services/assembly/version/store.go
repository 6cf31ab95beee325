// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package version keeps per-block content history: linear commits,
// named branches, checkout of any past version, and text diffs between
// versions.
package version

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultBranch is the branch every block history starts on.
const DefaultBranch = "main"

// Version is one committed state of a block's content.
type Version struct {
	// Number is the per-block version number, starting at 1.
	Number int `json:"number"`

	// Content is the full text at this version. Full snapshots, not
	// deltas; Diff records how the version changed its parent.
	Content string `json:"content"`

	// Diff is the unified diff against the parent version's content,
	// computed at commit time. Empty for a block's first version.
	Diff string `json:"diff,omitempty"`

	// Author recorded the change.
	Author string `json:"author,omitempty"`

	// Message describes the change.
	Message string `json:"message,omitempty"`

	// Branch is the branch the commit landed on.
	Branch string `json:"branch"`

	// Parent is the version number this commit extends. 0 for the first
	// commit.
	Parent int `json:"parent,omitempty"`

	// Timestamp is when the commit was made.
	Timestamp time.Time `json:"timestamp"`
}

// CommitMeta carries the authoring fields of a commit.
type CommitMeta struct {
	Author  string
	Message string

	// Branch selects the branch to commit on. Empty means DefaultBranch.
	Branch string
}

// history is the full record for one block. Guarded by its own mutex so
// commits to different blocks never contend.
type history struct {
	mu       sync.Mutex
	versions []Version
	// branches maps branch name to head version number.
	branches map[string]int
}

// Options configures a Store.
type Options struct {
	now func() time.Time
}

// Option mutates Options.
type Option func(*Options)

// WithClock overrides the commit timestamp source. For tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.now = now }
}

// Store holds version histories for all blocks, in memory.
//
// Thread Safety: safe for concurrent use. The store-level lock guards
// the block map; each block's history has its own lock.
type Store struct {
	mu      sync.RWMutex
	blocks  map[string]*history
	options Options
}

// NewStore creates an empty version store.
func NewStore(opts ...Option) *Store {
	options := Options{now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}
	return &Store{
		blocks:  make(map[string]*history),
		options: options,
	}
}

// get returns the history for a block, creating it when create is set.
func (s *Store) get(blockID string, create bool) (*history, error) {
	s.mu.RLock()
	h, ok := s.blocks[blockID]
	s.mu.RUnlock()
	if ok {
		return h, nil
	}
	if !create {
		return nil, &VersionError{BlockID: blockID, Err: ErrBlockNotFound}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.blocks[blockID]; ok {
		return h, nil
	}
	h = &history{branches: map[string]int{DefaultBranch: 0}}
	s.blocks[blockID] = h
	return h, nil
}

// Commit records a new version of the block's content and advances the
// branch head. The first commit to a block creates its history.
//
// Errors:
//   - ErrBranchNotFound: meta.Branch names an unknown branch.
//   - ErrEmptyCommit: content equals the branch head's content.
func (s *Store) Commit(blockID, content string, meta CommitMeta) (Version, error) {
	branch := meta.Branch
	if branch == "" {
		branch = DefaultBranch
	}

	h, err := s.get(blockID, true)
	if err != nil {
		return Version{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	head, ok := h.branches[branch]
	if !ok {
		return Version{}, &VersionError{BlockID: blockID, Err: ErrBranchNotFound}
	}
	if head > 0 && h.versions[head-1].Content == content {
		return Version{}, &VersionError{BlockID: blockID, Version: head, Err: ErrEmptyCommit}
	}

	v := Version{
		Number:    len(h.versions) + 1,
		Content:   content,
		Author:    meta.Author,
		Message:   meta.Message,
		Branch:    branch,
		Parent:    head,
		Timestamp: s.options.now(),
	}
	v.Diff = diffAgainstParent(blockID, h, v)
	h.versions = append(h.versions, v)
	h.branches[branch] = v.Number
	return v, nil
}

// diffAgainstParent renders the unified diff a commit introduces over
// its parent version. Called with the history lock held, before the
// version is appended.
func diffAgainstParent(blockID string, h *history, v Version) string {
	if v.Parent == 0 {
		return ""
	}
	parent := h.versions[v.Parent-1]
	if parent.Content == v.Content {
		return ""
	}
	return unifiedDiff(
		fmt.Sprintf("%s@v%d", blockID, parent.Number),
		fmt.Sprintf("%s@v%d", blockID, v.Number),
		parent.Content, v.Content,
	)
}

// Checkout returns the version with the given number.
func (s *Store) Checkout(blockID string, number int) (Version, error) {
	h, err := s.get(blockID, false)
	if err != nil {
		return Version{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if number < 1 || number > len(h.versions) {
		return Version{}, &VersionError{BlockID: blockID, Version: number, Err: ErrVersionNotFound}
	}
	return h.versions[number-1], nil
}

// Current returns the head version of a branch. Empty branch means
// DefaultBranch.
func (s *Store) Current(blockID, branch string) (Version, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	h, err := s.get(blockID, false)
	if err != nil {
		return Version{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	head, ok := h.branches[branch]
	if !ok {
		return Version{}, &VersionError{BlockID: blockID, Err: ErrBranchNotFound}
	}
	if head == 0 {
		return Version{}, &VersionError{BlockID: blockID, Err: ErrVersionNotFound}
	}
	return h.versions[head-1], nil
}

// History returns all versions of a block in commit order (oldest
// first). The returned slice is a copy.
func (s *Store) History(blockID string) ([]Version, error) {
	h, err := s.get(blockID, false)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Version, len(h.versions))
	copy(out, h.versions)
	return out, nil
}

// BranchHistory returns the versions reachable from a branch head by
// following parent links, oldest first.
func (s *Store) BranchHistory(blockID, branch string) ([]Version, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	h, err := s.get(blockID, false)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	head, ok := h.branches[branch]
	if !ok {
		return nil, &VersionError{BlockID: blockID, Err: ErrBranchNotFound}
	}

	var out []Version
	for n := head; n > 0; n = h.versions[n-1].Parent {
		out = append(out, h.versions[n-1])
	}
	// Oldest first.
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// CreateBranch creates a branch pointing at the given version. A zero
// fromVersion branches off the default branch head.
//
// Errors:
//   - ErrBranchExists: the name is taken.
//   - ErrVersionNotFound: fromVersion does not exist.
func (s *Store) CreateBranch(blockID, name string, fromVersion int) error {
	h, err := s.get(blockID, false)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.branches[name]; ok {
		return &VersionError{BlockID: blockID, Err: ErrBranchExists}
	}
	if fromVersion == 0 {
		fromVersion = h.branches[DefaultBranch]
	}
	if fromVersion < 1 || fromVersion > len(h.versions) {
		return &VersionError{BlockID: blockID, Version: fromVersion, Err: ErrVersionNotFound}
	}
	h.branches[name] = fromVersion
	return nil
}

// Branches returns the branch names for a block, sorted.
func (s *Store) Branches(blockID string) ([]string, error) {
	h, err := s.get(blockID, false)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.branches))
	for name := range h.branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Merge folds the source branch head into the target branch by
// committing the concatenation of both heads' content onto the target.
// Content-level reconciliation is left to the caller; the merge commit
// preserves both texts for a human to resolve.
func (s *Store) Merge(blockID, source, target string, meta CommitMeta) (Version, error) {
	if target == "" {
		target = DefaultBranch
	}
	h, err := s.get(blockID, false)
	if err != nil {
		return Version{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	srcHead, ok := h.branches[source]
	if !ok || srcHead == 0 {
		return Version{}, &VersionError{BlockID: blockID, Err: ErrBranchNotFound}
	}
	tgtHead, ok := h.branches[target]
	if !ok {
		return Version{}, &VersionError{BlockID: blockID, Err: ErrBranchNotFound}
	}

	content := h.versions[srcHead-1].Content
	if tgtHead > 0 && h.versions[tgtHead-1].Content != content {
		content = h.versions[tgtHead-1].Content + "\n" + content
	}

	v := Version{
		Number:    len(h.versions) + 1,
		Content:   content,
		Author:    meta.Author,
		Message:   meta.Message,
		Branch:    target,
		Parent:    tgtHead,
		Timestamp: s.options.now(),
	}
	v.Diff = diffAgainstParent(blockID, h, v)
	h.versions = append(h.versions, v)
	h.branches[target] = v.Number
	return v, nil
}

// Rollback commits the content of an earlier version as a new head on
// the default branch. History is append-only; nothing is erased.
func (s *Store) Rollback(blockID string, toVersion int, meta CommitMeta) (Version, error) {
	old, err := s.Checkout(blockID, toVersion)
	if err != nil {
		return Version{}, err
	}
	return s.Commit(blockID, old.Content, meta)
}

// Diff returns the unified diff between two versions of a block.
func (s *Store) Diff(blockID string, from, to int) (*Diff, error) {
	a, err := s.Checkout(blockID, from)
	if err != nil {
		return nil, err
	}
	b, err := s.Checkout(blockID, to)
	if err != nil {
		return nil, err
	}
	return Compare(blockID, a, b)
}
