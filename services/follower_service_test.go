package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowAndUnfollow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	svc := NewFollowerService(db)

	target, err := svc.Follow(ctx, alice.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, target.ID)

	_, err = svc.Follow(ctx, alice.ID, "bob")
	require.NoError(t, err, "following twice is a no-op")

	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	followers, total, err := svc.Followers(ctx, bob.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	_, err = svc.Unfollow(ctx, alice.ID, "bob")
	require.NoError(t, err)
	following, err = svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	_, err = svc.Unfollow(ctx, alice.ID, "bob")
	require.NoError(t, err)
}

func TestFollowRejectsSelfAndUnknown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	svc := NewFollowerService(db)

	_, err := svc.Follow(ctx, alice.ID, "alice")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Follow(ctx, alice.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollowingList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	seedUser(t, db, "bob")
	seedUser(t, db, "carol")
	svc := NewFollowerService(db)

	_, err := svc.Follow(ctx, alice.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Follow(ctx, alice.ID, "carol")
	require.NoError(t, err)

	users, total, err := svc.Following(ctx, alice.ID, Page{Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username, "most recent follow first")
}
