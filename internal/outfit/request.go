package outfit

import "strings"

// DefaultLocation is used when a request names no location.
const DefaultLocation = "서울"

// Profile describes the person the outfit is for. Every field is optional.
type Profile struct {
	Age        string `json:"age,omitempty" dynamodbav:"age,omitempty"`
	Gender     string `json:"gender,omitempty" dynamodbav:"gender,omitempty"`
	Occupation string `json:"occupation,omitempty" dynamodbav:"occupation,omitempty"`
}

// Context is where and when the outfit will be worn.
type Context struct {
	Date     string `json:"date,omitempty" dynamodbav:"date,omitempty"`
	Location string `json:"location,omitempty" dynamodbav:"location,omitempty"`
}

// LocationOrDefault returns the location, or DefaultLocation if it is blank.
func (c Context) LocationOrDefault() string {
	if l := strings.TrimSpace(c.Location); l != "" {
		return l
	}
	return DefaultLocation
}

// StyleRequest is what the user asked for.
type StyleRequest struct {
	Item string `json:"item,omitempty" dynamodbav:"item,omitempty"`
	TPO  string `json:"tpo,omitempty" dynamodbav:"tpo,omitempty"`
	Mood string `json:"mood,omitempty" dynamodbav:"mood,omitempty"`
}

// RequestInfo is the user-supplied part of a recommendation request. It is
// fixed for the lifetime of a session.
type RequestInfo struct {
	Profile Profile      `json:"profile" dynamodbav:"profile"`
	Context Context      `json:"context" dynamodbav:"context"`
	Style   StyleRequest `json:"style" dynamodbav:"style"`
}

// Request is everything the recommendation service receives for one call.
type Request struct {
	RequestInfo
	Weather string
	// Exclude lists the summaries of every pair already shown in this session.
	Exclude []SummaryPair
	// Considering is trimmed free-text feedback to take into account.
	Considering string
}

// MissingFields names the fields a top-level request must carry but r
// leaves blank. Location is optional and defaults to DefaultLocation.
func (r RequestInfo) MissingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"context.date", r.Context.Date},
		{"style.item", r.Style.Item},
		{"style.tpo", r.Style.TPO},
		{"style.mood", r.Style.Mood},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
