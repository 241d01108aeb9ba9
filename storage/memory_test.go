package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-desk/models"
)

func TestMemoryStore_Bookmarks(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first, err := m.AddBookmark(ctx, "s1", "v1n1")
	require.NoError(t, err)
	_, err = m.AddBookmark(ctx, "s1", "v2n1")
	require.NoError(t, err)

	again, err := m.AddBookmark(ctx, "s1", "v1n1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	list, err := m.ListBookmarks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "v2n1", list[0].IssueID)
	assert.Equal(t, "v1n1", list[1].IssueID)

	other, err := m.ListBookmarks(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)

	removed, err := m.RemoveBookmark(ctx, "s1", "v1n1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = m.RemoveBookmark(ctx, "s1", "v1n1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryStore_TouchKeepsUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s, err := m.Touch(ctx, "sess", "user-a")
	require.NoError(t, err)
	assert.Equal(t, "user-a", s.UserID)

	s, err = m.Touch(ctx, "sess", "user-b")
	require.NoError(t, err)
	assert.Equal(t, "user-a", s.UserID)
}

func TestSnapshotRecords_RoundTrip(t *testing.T) {
	issues := []*models.Issue{
		{ID: "v2n1", Volume: 2, Number: 1, Year: 2024, Title: "Vol 2", Articles: []*models.Article{
			{ID: 7, SourceID: "7", IssueID: "v2n1", Title: "A", Authors: []models.Author{{Name: "X", Position: "P", Email: "x@y"}}, Keywords: []string{"k1", "k2"}},
			{ID: 8, SourceID: "8", IssueID: "v2n1", Title: "B"},
		}},
		{ID: "v1n1", Volume: 1, Number: 1, Year: 2023, Title: "Vol 1"},
	}

	issueRows, articleRows, err := toRecords(issues, time.Now())
	require.NoError(t, err)
	require.Len(t, issueRows, 2)
	require.Len(t, articleRows, 2)

	back, err := fromRecords(issueRows, articleRows)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, "v2n1", back[0].ID)
	require.Len(t, back[0].Articles, 2)
	assert.Equal(t, issues[0].Articles[0].Authors, back[0].Articles[0].Authors)
	assert.Equal(t, []string{"k1", "k2"}, back[0].Articles[0].Keywords)
	assert.Empty(t, back[1].Articles)
}

func TestSnapshotRecords_UnknownIssue(t *testing.T) {
	_, err := fromRecords(nil, []ArticleRecord{{IssueID: "ghost"}})
	assert.Error(t, err)
}
