package models

import "time"

// Bookmark merkt sich eine Ausgabe für eine Session.
type Bookmark struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	SessionID string `json:"session_id" gorm:"index:idx_bookmarks_session_issue,unique;size:64;not null"`
	IssueID   string `json:"issue_id" gorm:"index:idx_bookmarks_session_issue,unique;size:128;not null"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Bookmark) TableName() string {
	return "bookmarks"
}

// Session verknüpft die Session-Kennung mit einer pseudonymen Nutzerkennung.
type Session struct {
	SessionID string    `json:"session_id" gorm:"primaryKey;size:64"`
	UserID    string    `json:"user_id" gorm:"size:64;not null"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Session) TableName() string {
	return "sessions"
}
