// Package domain defines the core domain models for the assistant.
package domain

import "strings"

// State represents the conversation controller state.
type State string

const (
	StateIdle              State = "IDLE"
	StateAskQuestion       State = "ASK_QUESTION"
	StateClassifyIntent    State = "CLASSIFY_INTENT"
	StateRetrievePOIs      State = "RETRIEVE_POIS"
	StateGetRecommendation State = "GET_RECOMMENDATION"
	StateGenerateResponse  State = "GENERATE_RESPONSE"
	StateWaitUserResponse  State = "WAIT_USER_RESPONSE"
	StateProposeNext       State = "PROPOSE_NEXT"
	StateSaveFeedback      State = "SAVE_FEEDBACK"
	StateEnd               State = "END"
)

// Category represents a point-of-interest category.
type Category string

const (
	CategoryStations    Category = "stations"
	CategoryRestaurants Category = "restaurants"
	CategoryHobbies     Category = "hobbies"
)

// Categories lists every supported category in preference-document order.
var Categories = []Category{CategoryStations, CategoryRestaurants, CategoryHobbies}

var categoryAliases = map[string]Category{
	"stations":    CategoryStations,
	"station":     CategoryStations,
	"charging":    CategoryStations,
	"fuel":        CategoryStations,
	"restaurants": CategoryRestaurants,
	"restaurant":  CategoryRestaurants,
	"food":        CategoryRestaurants,
	"hobbies":     CategoryHobbies,
	"hobby":       CategoryHobbies,
	"activity":    CategoryHobbies,
	"activities":  CategoryHobbies,
}

// ParseCategory maps a free-form category tag onto a Category.
func ParseCategory(s string) (Category, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// Role identifies the speaker of a transcript line.
type Role string

const (
	RolePrompt    Role = "prompt"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// EventType represents the type of a session trace event.
type EventType string

const (
	EventTypeSessionStarted EventType = "session_started"
	EventTypeStateChanged   EventType = "state_changed"
	EventTypePOISelected    EventType = "poi_selected"
	EventTypeFeedbackSaved  EventType = "feedback_saved"
	EventTypeSessionReset   EventType = "session_reset"
	EventTypeSessionEnded   EventType = "session_ended"
)
