package menu

import (
	"strings"
	"time"
)

// Section names used by the config store and the admin API.
const (
	SectionResponses        = "responses"
	SectionLists            = "lists"
	SectionListResponses    = "listResponses"
	SectionSubmenus         = "submenus"
	SectionSubmenuResponses = "submenuResponses"
)

// Sections lists every config section in storage order.
var Sections = []string{
	SectionResponses,
	SectionLists,
	SectionListResponses,
	SectionSubmenus,
	SectionSubmenuResponses,
}

// Command types.
const (
	CommandText = "text"
	CommandList = "list"
)

// Command is the configured reply to a typed trigger.
type Command struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	FollowUp string `json:"followUp,omitempty"`
}

// List is an interactive list. Submenus share the same shape.
type List struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ButtonText  string    `json:"buttonText,omitempty"` // Max 20 chars
	Sections    []Section `json:"sections"`
}

type Section struct {
	Title string `json:"title"` // Max 24 chars
	Rows  []Row  `json:"rows"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`       // Max 24 chars
	Description string `json:"description"` // Max 72 chars
}

type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"` // Max 20 chars (WhatsApp limit)
}

// Tree is the full editable configuration.
type Tree struct {
	Responses        map[string]Command `json:"responses"`
	Lists            map[string]List    `json:"lists"`
	ListResponses    Replies            `json:"listResponses"`
	Submenus         map[string]List    `json:"submenus"`
	SubmenuResponses Replies            `json:"submenuResponses"`
}

// Stats holds the usage counters shown in the admin portal.
type Stats struct {
	TotalMessages int       `json:"totalMessages"`
	UniqueUsers   int       `json:"uniqueUsers"`
	Users         []string  `json:"users,omitempty"`
	ResponseTime  string    `json:"responseTime"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// NormalizeTrigger lower-cases and trims user input so it can be matched
// against configured trigger keys.
func NormalizeTrigger(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
