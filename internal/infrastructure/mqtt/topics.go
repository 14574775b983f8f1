package mqtt

import "fmt"

// Topic prefixes for the ShowCall MQTT scheme.
//
// All topics use the flat scheme: showcall/{category}/{show_id}[/{detail}].
// Crew-facing hardware (cue light controllers, comms panels, backstage
// displays) subscribes to event topics; inbound note topics let that
// hardware write to the show log without an HTTP session.
const (
	// TopicPrefix is the base for all ShowCall topics.
	TopicPrefix = "showcall"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "showcall/system"
)

// Topics provides builders for ShowCall MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.ShowEvent("show-a1b2c3d4", "cue.executed")
//	// Returns: "showcall/event/show-a1b2c3d4/cue.executed"
type Topics struct{}

// ShowEvent returns the topic for one show event type.
//
// Example: showcall/event/show-a1b2c3d4/cue.executed
func (Topics) ShowEvent(showID, eventType string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, showID, eventType)
}

// ShowLive returns the retained topic carrying a show's latest live status.
//
// Example: showcall/live/show-a1b2c3d4
func (Topics) ShowLive(showID string) string {
	return fmt.Sprintf("%s/live/%s", TopicPrefix, showID)
}

// NoteInbox returns the inbound topic on which crew hardware submits notes
// for a show's log.
//
// Example: showcall/note/show-a1b2c3d4
func (Topics) NoteInbox(showID string) string {
	return fmt.Sprintf("%s/note/%s", TopicPrefix, showID)
}

// SystemStatus returns the system status topic.
//
// Example: showcall/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: showcall/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// Wildcard patterns for subscriptions.

// AllShowEvents returns a pattern matching every event for one show.
//
// Pattern: showcall/event/{show_id}/+
func (Topics) AllShowEvents(showID string) string {
	return fmt.Sprintf("%s/event/%s/+", TopicPrefix, showID)
}

// AllEvents returns a pattern matching all show events.
//
// Pattern: showcall/event/+/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+/+", TopicPrefix)
}

// AllNoteInboxes returns a pattern matching every show's note inbox.
//
// Pattern: showcall/note/+
func (Topics) AllNoteInboxes() string {
	return fmt.Sprintf("%s/note/+", TopicPrefix)
}

// AllTopics returns a pattern matching all ShowCall topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: showcall/#
func (Topics) AllTopics() string {
	return "showcall/#"
}

// ShowIDFromNoteTopic extracts the show ID from a note inbox topic, or ""
// if the topic does not match the scheme.
func ShowIDFromNoteTopic(topic string) string {
	prefix := TopicPrefix + "/note/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	return topic[len(prefix):]
}
