// ABOUTME: StoryCluster domain model groups articles covering the same underlying story
// ABOUTME: Clusters only grow; they are never merged or split after creation

package domain

import "time"

// StoryCluster is a set of articles judged to cover the same story
type StoryCluster struct {
	ID               string    `json:"id"`
	RepresentativeID string    `json:"representative_id"`
	MemberIDs        []string  `json:"member_ids"`
	Category         string    `json:"category,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasMember reports whether articleID already belongs to the cluster
func (c *StoryCluster) HasMember(articleID string) bool {
	for _, id := range c.MemberIDs {
		if id == articleID {
			return true
		}
	}
	return false
}

// AddMember appends articleID unless it is already a member
func (c *StoryCluster) AddMember(articleID string, at time.Time) bool {
	if c.HasMember(articleID) {
		return false
	}
	c.MemberIDs = append(c.MemberIDs, articleID)
	c.UpdatedAt = at
	return true
}
