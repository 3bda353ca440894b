package models

import "time"

// Follower is a directed follow edge from FollowerID to FolloweeID.
type Follower struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_followers_pair" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_followers_pair;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
