package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/services"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		page, size string
		wantPage   int
		wantSize   int
	}{
		{"defaults", "", "", 1, 10},
		{"explicit", "3", "25", 3, 25},
		{"max size", "1", "100", 1, services.MaxPageSize},
		{"oversized clamps", "2", "500", 2, services.MaxPageSize},
		{"zero size", "1", "0", 1, 10},
		{"negative page", "-4", "-1", 1, 10},
		{"garbage", "x", "y", 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, size := parsePagination(tt.page, tt.size)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestPostIDs(t *testing.T) {
	posts := []models.Post{{ID: 3}, {ID: 1}, {ID: 3}, {ID: 2}, {ID: 1}}
	assert.Equal(t, []uint{3, 1, 2}, postIDs(posts))
	assert.Empty(t, postIDs(nil))
}
