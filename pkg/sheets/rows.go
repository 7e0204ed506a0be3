package sheets

import (
	"strconv"
	"time"
)

// Registration is a user sign-up record.
type Registration struct {
	UserName       string `json:"userName"`
	Email          string `json:"email"`
	Position       string `json:"position"`
	BusinessType   string `json:"businessType"`
	Challenge      string `json:"challenge"`
	ChallengeOther string `json:"challengeOther,omitempty"`
	Phone          string `json:"phone"`
	StoreName      string `json:"storeName"`
	PlaceID        string `json:"placeId"`
}

// Search is one discovery request.
type Search struct {
	Query     string
	PlaceName string
	PlaceID   string
	Lat       float64
	Lng       float64
	IP        string
	UserAgent string
}

// Inquiry is a contact-form submission.
type Inquiry struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	StoreName string `json:"storeName"`
	Message   string `json:"message"`
}

func timestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Row builds the registration row. The free-text challenge is appended in
// parentheses when present.
func (r Registration) Row(now time.Time) Row {
	challenge := r.Challenge
	if r.ChallengeOther != "" {
		challenge += "(" + r.ChallengeOther + ")"
	}
	return Row{
		SheetName: SheetRegistrations,
		Values: []any{
			timestamp(now), r.UserName, r.Email, r.Position, r.BusinessType,
			challenge, r.Phone, r.StoreName, r.PlaceID,
		},
	}
}

// Row builds the search-log row.
func (s Search) Row(now time.Time) Row {
	return Row{
		SheetName: SheetSearches,
		Values: []any{
			timestamp(now), s.Query, s.PlaceName, s.PlaceID,
			formatCoord(s.Lat), formatCoord(s.Lng), s.IP, s.UserAgent,
		},
	}
}

// Row builds the inquiry row.
func (i Inquiry) Row(now time.Time) Row {
	return Row{
		SheetName: SheetInquiries,
		Values:    []any{timestamp(now), i.Name, i.Email, i.StoreName, i.Message},
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
