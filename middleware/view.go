package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/utils"
)

// PostViewRecorder counts successful GETs of a post detail route into a per-day counter.
// The route must carry the post id in the ":id" parameter.
func PostViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			return
		}

		if err := RecordPostView(db, uint(id), time.Now()); err != nil {
			utils.Sugar.Warnf("record post view failed post=%d err=%v", id, err)
		}
	}
}

// RecordPostView increments the counter of postID for the UTC day of at.
func RecordPostView(db *gorm.DB, postID uint, at time.Time) error {
	day := at.UTC().Truncate(24 * time.Hour)
	// Atomic upsert to avoid duplicate key errors under concurrency
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "post_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now().UTC()}),
	}).Create(&models.PostView{Date: day, PostID: postID, Count: 1}).Error
}
