package services

import (
	"fmt"
	"strings"

	"journal-desk/models"
)

const maxCitedAuthors = 6

// FormatReference rendert einen Artikel als kompakte Literaturangabe:
// Autoren (Jahr). Titel. Ausgabe, Vol. N(M), Seiten. doi:...
func FormatReference(issue *models.Issue, a *models.Article) string {
	names := a.AuthorNames()
	authors := "Unknown Authors"
	if len(names) > maxCitedAuthors {
		authors = strings.Join(names[:maxCitedAuthors], ", ") + " et al."
	} else if len(names) > 0 {
		authors = strings.Join(names, ", ")
	}

	year := "n.d."
	if issue.Year > 0 {
		year = fmt.Sprintf("%d", issue.Year)
	}
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = "Untitled"
	}

	source := fmt.Sprintf("Vol. %d(%d)", issue.Volume, issue.Number)
	if issue.Title != "" {
		source = issue.Title + ", " + source
	}
	if a.Pages != "" {
		source += ", " + a.Pages
	}

	ref := fmt.Sprintf("%s (%s). %s. %s.", authors, year, strings.TrimSuffix(title, "."), source)
	if a.DOI != "" {
		ref += " doi:" + a.DOI
	}
	return ref
}

// BuildBibliography liefert die Literaturangaben einer Ausgabe in Artikelreihenfolge.
func BuildBibliography(issue *models.Issue) []string {
	refs := make([]string, 0, len(issue.Articles))
	for _, a := range issue.Articles {
		refs = append(refs, FormatReference(issue, a))
	}
	return refs
}
