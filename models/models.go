package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Subnoddit{},
		&Post{},
		&Comment{},
		&PostVote{},
		&CommentVote{},
		&Follower{},
		&PostView{},
	}
}
