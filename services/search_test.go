package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-desk/models"
)

func fixtureIndex() *Index {
	issues := []*models.Issue{
		{ID: "a", Year: 2023, Volume: 1, Number: 2, Title: "Spring Issue", Articles: []*models.Article{
			{ID: 1, IssueID: "a", Title: "Islamic Banking Today", Authors: []models.Author{{Name: "Sara Malik"}}},
			{ID: 2, IssueID: "a", Title: "Trade Routes", Abstract: "History of the silk road."},
		}},
		{ID: "b", Year: 2024, Volume: 1, Number: 1, Title: "Winter Issue", Articles: []*models.Article{
			{ID: 3, IssueID: "b", Title: "Ethics", Keywords: []string{"ISLAMIC philosophy"}},
		}},
		{ID: "c", Year: 2023, Volume: 2, Number: 1, Title: "Autumn Issue", Articles: []*models.Article{
			{ID: 4, IssueID: "c", Title: "Poetry", Abstract: "Classical islamic verse"},
			{ID: 5, IssueID: "c", Title: "Grammar", Authors: []models.Author{{Name: "Omar"}}},
		}},
		{ID: "d", Year: 2022, Volume: 3, Number: 1, Title: "Empty Issue", Articles: []*models.Article{}},
	}
	return NewIndex(issues)
}

func issueIDs(entries []Entry) []string {
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.Issue.ID)
	}
	return ids
}

func articleIDs(entries []Entry) []int {
	var ids []int
	for _, e := range entries {
		ids = append(ids, e.Article.ID)
	}
	return ids
}

func TestSearch_SortOrder(t *testing.T) {
	issues := []*models.Issue{
		{ID: "x", Year: 2023, Volume: 1, Number: 2},
		{ID: "y", Year: 2024, Volume: 1, Number: 1},
		{ID: "z", Year: 2023, Volume: 2, Number: 1},
	}
	ix := NewIndex(issues)

	got := SearchIssues(ix, Query{Order: NewestFirst})
	require.Len(t, got, 3)
	assert.Equal(t, "y", got[0].ID)
	assert.Equal(t, "z", got[1].ID)
	assert.Equal(t, "x", got[2].ID)

	got = SearchIssues(ix, Query{Order: OldestFirst})
	assert.Equal(t, "x", got[0].ID)
	assert.Equal(t, "z", got[1].ID)
	assert.Equal(t, "y", got[2].ID)
}

func TestSearch_StableOnTies(t *testing.T) {
	ix := fixtureIndex()
	got := Search(ix, Query{Order: NewestFirst})
	assert.Equal(t, []int{3, 4, 5, 1, 2}, articleIDs(got))

	got = Search(ix, Query{Order: OldestFirst})
	assert.Equal(t, []int{1, 2, 4, 5, 3}, articleIDs(got))
}

func TestSearch_TextMatch(t *testing.T) {
	ix := fixtureIndex()

	got := Search(ix, Query{Text: "islamic"})
	assert.ElementsMatch(t, []int{1, 3, 4}, articleIDs(got), "title, keywords and abstract are searched")

	got = Search(ix, Query{Text: "  SARA  "})
	assert.Equal(t, []int{1}, articleIDs(got), "author names, case-insensitive, trimmed")

	got = Search(ix, Query{Text: "winter issue"})
	assert.Equal(t, []int{3}, articleIDs(got), "issue title")

	got = Search(ix, Query{Text: "volume 2"})
	assert.Equal(t, []int{4, 5}, articleIDs(got), "synthesised volume token")

	assert.Empty(t, Search(ix, Query{Text: "nothing like this"}))
}

func TestSearch_EqualityFilters(t *testing.T) {
	ix := fixtureIndex()

	got := Search(ix, Query{Year: 2023})
	assert.Equal(t, []string{"c", "c", "a", "a"}, issueIDs(got))

	got = Search(ix, Query{Year: 2023, Volume: 1, Text: "trade"})
	assert.Equal(t, []int{2}, articleIDs(got))

	assert.Empty(t, Search(ix, Query{Volume: 9}))
}

func TestSearchIssues_IncludesIssuesWithoutArticles(t *testing.T) {
	ix := fixtureIndex()

	got := SearchIssues(ix, Query{Order: OldestFirst})
	require.Len(t, got, 4)
	assert.Equal(t, "d", got[0].ID)

	got = SearchIssues(ix, Query{Text: "empty"})
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0].ID)

	got = SearchIssues(ix, Query{Text: "omar"})
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestIndex_Lookups(t *testing.T) {
	ix := fixtureIndex()

	issue, err := ix.Issue("b")
	require.NoError(t, err)
	assert.Equal(t, "Winter Issue", issue.Title)

	_, err = ix.Issue("nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	e, err := ix.Article(4)
	require.NoError(t, err)
	assert.Equal(t, "c", e.Issue.ID)

	_, err = ix.Article(99)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, Facets{Years: []int{2024, 2023, 2022}, Volumes: []int{3, 2, 1}}, ix.Facets())
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, OldestFirst, ParseSortOrder("Oldest"))
	assert.Equal(t, NewestFirst, ParseSortOrder("newest"))
	assert.Equal(t, NewestFirst, ParseSortOrder(""))
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name, text, query, want string
	}{
		{
			name:  "wraps case-insensitive matches",
			text:  "Islamic law and islamic ethics",
			query: "islamic",
			want:  `<span class="search-highlight">Islamic</span> law and <span class="search-highlight">islamic</span> ethics`,
		},
		{
			name:  "escapes source once",
			text:  "<b>Islamic</b> & more",
			query: "islamic",
			want:  `&lt;b&gt;<span class="search-highlight">Islamic</span>&lt;/b&gt; &amp; more`,
		},
		{
			name:  "regex characters in query",
			text:  "What is (a+b)? Not a+b.",
			query: "(a+b)?",
			want:  `What is <span class="search-highlight">(a+b)?</span> Not a+b.`,
		},
		{
			name:  "query matching entity text is not mangled",
			text:  "fish & chips",
			query: "amp",
			want:  `fish &amp; chips`,
		},
		{
			name:  "decomposed source matches composed query",
			text:  "Le cafe\u0301 noir",
			query: "CAF\u00c9",
			want:  "Le <span class=\"search-highlight\">caf\u00e9</span> noir",
		},
		{
			name:  "decomposed query matches composed source",
			text:  "caf\u00e9",
			query: "cafe\u0301",
			want:  "<span class=\"search-highlight\">caf\u00e9</span>",
		},
		{
			name:  "empty query only escapes",
			text:  "a < b",
			query: " ",
			want:  `a &lt; b`,
		},
		{
			name:  "no match leaves text unchanged",
			text:  "Trade Routes",
			query: "islamic",
			want:  `Trade Routes`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(tt.text, tt.query))
		})
	}
}
