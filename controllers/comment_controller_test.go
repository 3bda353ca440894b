package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commentNode struct {
	ID       uint          `json:"id"`
	ParentID *uint         `json:"parent_id"`
	Text     string        `json:"text"`
	Points   int           `json:"points"`
	Deleted  bool          `json:"deleted"`
	UserVote int           `json:"user_vote"`
	Replies  []commentNode `json:"replies"`
}

func (e *testEnv) comment(t *testing.T, token string, postID uint, parentID *uint, text string) uint {
	t.Helper()
	body := gin.H{"text": text}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	w, resp := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		Comment struct {
			ID uint `json:"id"`
		} `json:"comment"`
	}](t, resp.Data).Comment.ID
}

func TestCommentTreeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "treeowner")
	_, bob := env.signup(t, "treereader")
	postID := env.makePost(t, alice, "trees", "threaded")

	root := env.comment(t, alice, postID, nil, "root")
	reply := env.comment(t, bob, postID, &root, "reply")
	env.comment(t, bob, postID, &reply, "nested")
	other := env.comment(t, bob, postID, nil, "second root")

	w, resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/comments/%d/vote", other), alice, gin.H{"direction": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[voteResult](t, resp.Data).Points)

	w, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments", postID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[listPage[commentNode]](t, resp.Data)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, other, page.Items[0].ID, "top sort puts the voted root first")
	assert.Equal(t, 1, page.Items[0].UserVote)
	require.Len(t, page.Items[1].Replies, 1)
	require.Len(t, page.Items[1].Replies[0].Replies, 1)
	assert.Equal(t, "nested", page.Items[1].Replies[0].Replies[0].Text)

	_, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments?sort=new&page_size=1", postID), "", nil)
	page = decode[listPage[commentNode]](t, resp.Data)
	require.Len(t, page.Items, 1)
	assert.Equal(t, other, page.Items[0].ID)
	assert.Equal(t, 0, page.Items[0].UserVote)

	w, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/comments?sort=sideways", postID), "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40030, resp.Code)

	w, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/comments/%d", reply), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sub := decode[struct {
		Comment commentNode `json:"comment"`
	}](t, resp.Data)
	assert.Equal(t, "reply", sub.Comment.Text)
	assert.Len(t, sub.Comment.Replies, 1)
}

func TestCommentEditDelete(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "editor")
	_, bob := env.signup(t, "replier")
	postID := env.makePost(t, alice, "edits", "post")

	root := env.comment(t, alice, postID, nil, "original")
	leaf := env.comment(t, bob, postID, &root, "leaf")

	w, resp := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/comments/%d", root), bob, gin.H{"text": "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40330, resp.Code)

	w, _ = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/comments/%d", root), alice, gin.H{"text": "changed"})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", root), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[struct {
		Removed bool `json:"removed"`
	}](t, resp.Data).Removed, "a comment with replies is blanked")

	_, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/comments/%d", root), "", nil)
	blanked := decode[struct {
		Comment commentNode `json:"comment"`
	}](t, resp.Data).Comment
	assert.Equal(t, "[deleted]", blanked.Text)
	assert.True(t, blanked.Deleted)
	assert.Len(t, blanked.Replies, 1)

	w, resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", leaf), bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[struct {
		Removed bool `json:"removed"`
	}](t, resp.Data).Removed)

	w, resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), bob, gin.H{"text": "x", "parent_id": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40430, resp.Code)

	w, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/comments", postID), "", gin.H{"text": "anon"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
