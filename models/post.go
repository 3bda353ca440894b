package models

import "time"

// Post is a submission to a subnoddit. Points caches SUM(direction) over its votes.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	SubnodditID  uint      `gorm:"index;not null" json:"subnoddit_id"`
	Title        string    `gorm:"size:300;not null" json:"title"`
	Text         string    `gorm:"type:text" json:"text"`
	Link         string    `gorm:"size:2048" json:"link"`
	Points       int       `gorm:"not null;default:0;index" json:"points"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	User         User      `json:"author"`
	Subnoddit    Subnoddit `json:"subnoddit"`
}
