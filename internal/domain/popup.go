package domain

import (
	"html"
	"strconv"
	"time"
)

// BuildPopup renders the marker popup: place and magnitude as a heading,
// followed by the event time.
func BuildPopup(q Quake) string {
	return "<h3>" + html.EscapeString(q.Place) +
		"<br>Magnitude: " + strconv.FormatFloat(q.Magnitude, 'f', -1, 64) +
		"</h3><hr><p>" + formatEventTime(q.Time) + "</p>"
}

func formatEventTime(t time.Time) string {
	if t.IsZero() {
		return "unknown time"
	}
	return t.UTC().Format(time.RFC1123)
}

// StyleQuake resolves the marker style and popup for a parsed quake.
func StyleQuake(s *Styler, q Quake) (StyledQuake, error) {
	style, err := s.Marker(q.Magnitude)
	if err != nil {
		return StyledQuake{}, err
	}
	return StyledQuake{Quake: q, Style: style, Popup: BuildPopup(q)}, nil
}
