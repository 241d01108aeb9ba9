package models

import "fmt"

// User ist der angemeldete Nutzer, wie ihn das Apps-Script-Backend liefert.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Team  string `json:"team,omitempty"`
}

// Dashboard ist die vollständige Dashboard-Nutzlast des Backends.
type Dashboard struct {
	Summary map[string]int     `json:"summary,omitempty"`
	Teams   []Team             `json:"teams,omitempty"`
	Records []AttendanceRecord `json:"records,omitempty"`
}

// Team fasst Mitglieder unter einer Leitung zusammen.
type Team struct {
	Name    string   `json:"name"`
	Leader  string   `json:"leader"`
	Members []string `json:"members"`
}

// AttendanceRecord ist ein einzelner Anwesenheitseintrag.
type AttendanceRecord struct {
	Member string `json:"member"`
	Team   string `json:"team"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// DashboardView ist der rollenabhängig gefilterte Ausschnitt für die Darstellung.
type DashboardView struct {
	User    User               `json:"user"`
	Summary map[string]int     `json:"summary,omitempty"`
	Teams   []Team             `json:"teams,omitempty"`
	Records []AttendanceRecord `json:"records,omitempty"`
}

// BuildDashboardView filtert das Dashboard nach der Rolle des Nutzers.
func BuildDashboardView(u User, d Dashboard) (DashboardView, error) {
	view := DashboardView{User: u}
	switch u.Role {
	case RoleAdmin:
		view.Summary = d.Summary
		view.Teams = d.Teams
		view.Records = d.Records
	case RoleLeader:
		view.Summary = d.Summary
		for _, t := range d.Teams {
			if t.Name == u.Team {
				view.Teams = append(view.Teams, t)
			}
		}
		for _, r := range d.Records {
			if r.Team == u.Team {
				view.Records = append(view.Records, r)
			}
		}
	case RoleMember:
		for _, r := range d.Records {
			if r.Member == u.Name {
				view.Records = append(view.Records, r)
			}
		}
	default:
		return DashboardView{}, fmt.Errorf("no dashboard view for role %v", u.Role)
	}
	return view, nil
}
