package models

// Inbound event types (client -> server).
const (
	EventReportLocation = "reportLocation"
	EventPlayerMove     = "playerMove"
	EventUpdateProfile  = "updateProfile"
	EventChangeName     = "changeName" // legacy variant of updateProfile
	EventSendChat       = "sendChat"
)

// Outbound event types (server -> clients).
const (
	EventHistory     = "history"
	EventUpdateMap   = "updateMap"
	EventYourNameIs  = "yourNameIs"
	EventChatMessage = "chatMessage"
)

// ClientEvent is the superset envelope the frontend sends us. Only the fields
// matching Type are meaningful; pointer fields distinguish "absent" from
// "empty" for partial profile updates.
type ClientEvent struct {
	Type    string  `json:"type"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Avatar  *string `json:"avatar"`
	Name    *string `json:"name"`
	NewName *string `json:"newName"`
	Text    string  `json:"text"`
}

// Specific outbound event structures

// HistoryEvent hydrates a newly connected client with the persisted log.
type HistoryEvent struct {
	Type     string    `json:"type"`
	Messages []Message `json:"messages"`
}

// UpdateMapEvent carries a full registry snapshot to every client.
type UpdateMapEvent struct {
	Type  string                 `json:"type"`
	Users map[string]Participant `json:"users"`
}

// YourNameIsEvent tells a joining client its generated guest name.
type YourNameIsEvent struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ChatMessageEvent carries one chat or system message to every client.
type ChatMessageEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}
