package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/noddit/models"
)

func TestNextDirection(t *testing.T) {
	tests := []struct {
		current, requested, want int
	}{
		{0, 1, 1},
		{1, 1, 0},
		{0, -1, -1},
		{-1, -1, 0},
		{1, -1, -1},
		{-1, 1, 1},
		{1, 0, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextDirection(tt.current, tt.requested), "current=%d requested=%d", tt.current, tt.requested)
	}
}

func TestVotePostToggleCycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	sub := seedSubnoddit(t, db, alice, "golang")
	post := seedPost(t, db, alice, sub, "hello", time.Now())
	svc := NewVoteService(db)

	steps := []struct {
		dir           int
		wantDirection int
		wantPoints    int
	}{
		{models.DirectionUp, 1, 1},
		{models.DirectionUp, 0, 0},
		{models.DirectionDown, -1, -1},
		{models.DirectionDown, 0, 0},
		{models.DirectionDown, -1, -1},
		{models.DirectionUp, 1, 1},
		{models.DirectionNone, 0, 0},
	}
	for i, step := range steps {
		res, err := svc.VotePost(ctx, alice.ID, post.ID, step.dir)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, post.ID, res.TargetID)
		assert.Equal(t, step.wantDirection, res.Direction, "step %d", i)
		assert.Equal(t, step.wantPoints, res.Points, "step %d", i)
		assert.Equal(t, step.wantPoints, reloadPost(t, db, post.ID).Points, "step %d", i)
	}

	var rows int64
	require.NoError(t, db.Model(&models.PostVote{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "one vote row per user and post")
}

func TestVotePostSumsAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	sub := seedSubnoddit(t, db, alice, "golang")
	post := seedPost(t, db, alice, sub, "hello", time.Now())
	svc := NewVoteService(db)

	_, err := svc.VotePost(ctx, alice.ID, post.ID, 1)
	require.NoError(t, err)
	_, err = svc.VotePost(ctx, bob.ID, post.ID, 1)
	require.NoError(t, err)
	res, err := svc.VotePost(ctx, carol.ID, post.ID, -1)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Points)
	assert.Equal(t, -1, res.Direction)
}

func TestVoteRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	svc := NewVoteService(db)

	_, err := svc.VotePost(ctx, alice.ID, 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.VoteComment(ctx, alice.ID, 999, -1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.VotePost(ctx, alice.ID, 1, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVoteComment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	sub := seedSubnoddit(t, db, alice, "golang")
	post := seedPost(t, db, alice, sub, "hello", time.Now())
	c := seedComment(t, db, alice, post, nil, "first", 0, time.Now())
	svc := NewVoteService(db)

	_, err := svc.VoteComment(ctx, alice.ID, c.ID, -1)
	require.NoError(t, err)
	res, err := svc.VoteComment(ctx, bob.ID, c.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, -2, res.Points)

	var stored models.Comment
	require.NoError(t, db.First(&stored, c.ID).Error)
	assert.Equal(t, -2, stored.Points)
	assert.Equal(t, 0, reloadPost(t, db, post.ID).Points, "comment votes do not touch the post")
}

func TestUserVotesForPosts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	sub := seedSubnoddit(t, db, alice, "golang")
	p1 := seedPost(t, db, alice, sub, "one", time.Now())
	p2 := seedPost(t, db, alice, sub, "two", time.Now())
	p3 := seedPost(t, db, alice, sub, "three", time.Now())
	svc := NewVoteService(db)

	_, err := svc.VotePost(ctx, alice.ID, p1.ID, 1)
	require.NoError(t, err)
	_, err = svc.VotePost(ctx, alice.ID, p2.ID, -1)
	require.NoError(t, err)
	_, err = svc.VotePost(ctx, alice.ID, p3.ID, 1)
	require.NoError(t, err)
	_, err = svc.VotePost(ctx, alice.ID, p3.ID, 1)
	require.NoError(t, err)

	votes, err := svc.UserVotesForPosts(ctx, alice.ID, []uint{p1.ID, p2.ID, p3.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{p1.ID: 1, p2.ID: -1}, votes)

	empty, err := svc.UserVotesForPosts(ctx, 0, []uint{p1.ID})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserVotesForComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	sub := seedSubnoddit(t, db, alice, "golang")
	post := seedPost(t, db, alice, sub, "hello", time.Now())
	c := seedComment(t, db, alice, post, nil, "first", 0, time.Now())
	svc := NewVoteService(db)

	_, err := svc.VoteComment(ctx, alice.ID, c.ID, 1)
	require.NoError(t, err)

	votes, err := svc.UserVotesForComments(ctx, alice.ID, []uint{c.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{c.ID: 1}, votes)
}

func TestReconcilePoints(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	sub := seedSubnoddit(t, db, alice, "golang")
	post := seedPost(t, db, alice, sub, "hello", time.Now())
	untouched := seedPost(t, db, alice, sub, "quiet", time.Now())
	c := seedComment(t, db, alice, post, nil, "first", 0, time.Now())
	svc := NewVoteService(db)

	_, err := svc.VotePost(ctx, alice.ID, post.ID, 1)
	require.NoError(t, err)
	_, err = svc.VoteComment(ctx, alice.ID, c.ID, 1)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("points", 42).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("id = ?", c.ID).UpdateColumn("points", -7).Error)

	fixed, err := svc.ReconcilePoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fixed)
	assert.Equal(t, 1, reloadPost(t, db, post.ID).Points)
	assert.Equal(t, 0, reloadPost(t, db, untouched.ID).Points)

	var stored models.Comment
	require.NoError(t, db.First(&stored, c.ID).Error)
	assert.Equal(t, 1, stored.Points)

	fixed, err = svc.ReconcilePoints(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}
