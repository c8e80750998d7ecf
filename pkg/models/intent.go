package models

// Intent action names produced by the parser rule table.
const (
	// ActionUnknown is returned when no rule matches the input.
	ActionUnknown = "unknown"
	// ActionStatus requests a system status summary (handled locally, no task).
	ActionStatus = "status"
	// ActionHelp requests command help (handled locally, no task).
	ActionHelp = "help"
)

// Intent is the structured interpretation of a free-text command.
type Intent struct {
	// RawText is the original input, normalized to lower case.
	RawText string `json:"raw_text"`
	// Action is the resolved action name, or ActionUnknown.
	Action string `json:"action"`
	// Entities maps extracted entity names to string values.
	Entities map[string]string `json:"entities,omitempty"`
	// Confidence is the parser's confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// Entity returns the named entity or the fallback when absent or empty.
func (i *Intent) Entity(name, fallback string) string {
	if v, ok := i.Entities[name]; ok && v != "" {
		return v
	}
	return fallback
}
