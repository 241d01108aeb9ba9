package models

// Issue repräsentiert eine veröffentlichte Ausgabe (Band/Nummer) des Journals.
type Issue struct {
	ID            string `json:"id"`
	Volume        int    `json:"volume"`
	Number        int    `json:"number"`
	Year          int    `json:"year"`
	Title         string `json:"title"`
	PublishedDate string `json:"published_date,omitempty"`
	CoverImage    string `json:"cover_image,omitempty"`

	// Reihenfolge entspricht der Zeilenreihenfolge in der Quelle
	Articles []*Article `json:"articles"`
}

// Article repräsentiert einen einzelnen wissenschaftlichen Beitrag einer Ausgabe.
type Article struct {
	// ID ist die numerische Kennung (geparst oder gehasht), SourceID der Rohwert aus der Tabelle.
	ID       int    `json:"id"`
	SourceID string `json:"source_id"`
	IssueID  string `json:"issue_id"`

	Title    string   `json:"title"`
	Authors  []Author `json:"authors"`
	Abstract string   `json:"abstract,omitempty"`
	Date     string   `json:"date,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Pages    string   `json:"pages,omitempty"`
	PDFURL   string   `json:"pdf_url,omitempty"`
	DOI      string   `json:"doi,omitempty"`
}

// Author ist ein Autor eines Artikels. Autoren werden nicht zwischen Artikeln geteilt.
type Author struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Email    string `json:"email"`
}

// AuthorNames liefert die Namen aller Autoren in Quellreihenfolge.
func (a *Article) AuthorNames() []string {
	names := make([]string, 0, len(a.Authors))
	for _, au := range a.Authors {
		names = append(names, au.Name)
	}
	return names
}
