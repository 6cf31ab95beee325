// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"fmt"
	"sort"
)

// DefaultTopic buckets blocks that declare no topic.
const DefaultTopic = "general"

// Hierarchical groups blocks by topic and orders each group by level.
// Topic groups appear in the order their first member appears in the
// template; within a group, shallower levels come first, template
// position breaking ties.
type Hierarchical struct{}

func (s *Hierarchical) Name() string { return StrategyHierarchical }

// Assemble resolves eligible slots, then reorders them topic by topic.
//
// Errors:
//   - *ValidationError: a required slot could not be filled.
func (s *Hierarchical) Assemble(ctx context.Context, in Input) (*Document, error) {
	placements, missing, warnings, err := resolveSlots(ctx, in, nil)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &ValidationError{TemplateID: in.Template.ID, Missing: missing}
	}

	// Group by topic, first-seen order.
	var topics []string
	groups := make(map[string][]placed)
	for _, p := range placements {
		topic := p.block.Metadata.Topic
		if topic == "" {
			topic = DefaultTopic
		}
		if _, seen := groups[topic]; !seen {
			topics = append(topics, topic)
		}
		p.reason = fmt.Sprintf("topic:%s", topic)
		groups[topic] = append(groups[topic], p)
	}

	ordered := make([]placed, 0, len(placements))
	for _, topic := range topics {
		group := groups[topic]
		sort.SliceStable(group, func(i, j int) bool {
			li, lj := blockLevel(group[i].block), blockLevel(group[j].block)
			if li != lj {
				return li < lj
			}
			return group[i].position < group[j].position
		})
		ordered = append(ordered, group...)
	}

	return buildDocument(in, ordered, warnings, 0), nil
}
