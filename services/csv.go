package services

import (
	"fmt"
	"strings"
)

// Row ist eine CSV-Datenzeile: kleingeschriebener Header -> getrimmter Wert.
type Row map[string]string

// ParseCSV zerlegt den Export-Text in Zeilen-Mappings.
//
// Die erste nicht-leere Zeile ist der Header. Felder dürfen in doppelte oder einfache
// Anführungszeichen gesetzt werden und dann Kommas enthalten; ein verdoppeltes
// Anführungszeichen im Feld steht für ein literales. Leere Zeilen werden übersprungen.
// Zeilenumbrüche innerhalb von Feldern werden nicht unterstützt.
func ParseCSV(text string) ([]Row, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: need a header and at least one data row, got %d line(s)", ErrMalformedInput, len(lines))
	}

	header := splitFields(lines[0])
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := splitFields(line)
		row := make(Row, len(header))
		for i, h := range header {
			if i < len(fields) {
				row[h] = strings.TrimSpace(fields[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// splitFields trennt eine Zeile an Kommas außerhalb von Anführungszeichen.
func splitFields(line string) []string {
	var (
		fields  []string
		cur     strings.Builder
		quote   rune // 0 = außerhalb eines quotierten Feldes
		runes   = []rune(line)
		atStart = true
	)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					cur.WriteRune(r)
					i++
					continue
				}
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == ',':
			fields = append(fields, cur.String())
			cur.Reset()
			atStart = true
			continue
		case (r == '"' || r == '\'') && atStart:
			quote = r
		case atStart && (r == ' ' || r == '\t'):
			// führende Leerzeichen vor einem öffnenden Anführungszeichen
			cur.WriteRune(r)
			continue
		default:
			cur.WriteRune(r)
		}
		atStart = false
	}
	fields = append(fields, cur.String())
	return fields
}
