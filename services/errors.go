package services

import "errors"

var (
	// ErrMalformedInput bedeutet, dass der Text keine verwertbaren Datenzeilen enthält.
	ErrMalformedInput = errors.New("malformed input")
	// ErrNotFound bedeutet, dass keine Ausgabe bzw. kein Artikel zur Kennung existiert.
	ErrNotFound = errors.New("not found")
	// ErrNoCatalog bedeutet, dass noch kein Katalog erfolgreich geladen wurde.
	ErrNoCatalog = errors.New("catalog not loaded")
)
