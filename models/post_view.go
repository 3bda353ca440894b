package models

import "time"

// PostView stores aggregated view counts per day and post.
type PostView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_post_views_date_post,unique;type:date;not null" json:"date"`
	PostID    uint      `gorm:"index;index:idx_post_views_date_post,unique;not null" json:"post_id"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
