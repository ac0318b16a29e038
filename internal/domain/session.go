package domain

import "time"

// Session represents a tutoring conversation about one problem.
type Session struct {
	SessionID        string    `json:"session_id"`
	ProblemReference string    `json:"problem_reference"`
	Turns            []Turn    `json:"turns"`
	CreatedAt        time.Time `json:"created_at"`
}

// Turn represents a single entry in a session's history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Clone returns a deep copy so callers never share the store's slice.
func (s *Session) Clone() Session {
	out := *s
	out.Turns = append([]Turn(nil), s.Turns...)
	return out
}

// VisibleTurns returns the user and assistant turns in order.
func (s *Session) VisibleTurns() []Turn {
	visible := make([]Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Role == RoleDirector {
			continue
		}
		visible = append(visible, t)
	}
	return visible
}

// CountRole counts turns authored by role.
func (s *Session) CountRole(role Role) int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == role {
			n++
		}
	}
	return n
}
