package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"journal-desk/models"
)

func TestFormatReference(t *testing.T) {
	issue := &models.Issue{ID: "v3n2", Volume: 3, Number: 2, Year: 2024, Title: "Summer Issue"}

	tests := []struct {
		name    string
		article *models.Article
		want    string
	}{
		{
			name: "full",
			article: &models.Article{
				Title:   "Water Rights.",
				Authors: []models.Author{{Name: "Omar Said"}, {Name: "Lina Haddad"}},
				Pages:   "12-30",
				DOI:     "10.1/x",
			},
			want: "Omar Said, Lina Haddad (2024). Water Rights. Summer Issue, Vol. 3(2), 12-30. doi:10.1/x",
		},
		{
			name:    "no authors and no title",
			article: &models.Article{},
			want:    "Unknown Authors (2024). Untitled. Summer Issue, Vol. 3(2).",
		},
		{
			name: "many authors",
			article: &models.Article{
				Title:   "Big",
				Authors: []models.Author{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}, {Name: "E"}, {Name: "F"}, {Name: "G"}},
			},
			want: "A, B, C, D, E, F et al. (2024). Big. Summer Issue, Vol. 3(2).",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatReference(issue, tt.article))
		})
	}
}

func TestBuildBibliography(t *testing.T) {
	issue := &models.Issue{Volume: 1, Number: 1, Articles: []*models.Article{{Title: "One"}, {Title: "Two"}}}
	refs := BuildBibliography(issue)
	assert.Equal(t, []string{
		"Unknown Authors (n.d.). One. Vol. 1(1).",
		"Unknown Authors (n.d.). Two. Vol. 1(1).",
	}, refs)
}
