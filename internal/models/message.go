package models

import "time"

// SystemName is the display name attached to server-generated announcements.
const SystemName = "System"

// ---------------------------------------------
// Core Domain Models
// ---------------------------------------------

// Participant is the server-side state for one connected client: identity,
// last reported position, and optional avatar. Stored by value so registry
// snapshots are safe to hand to broadcast.
type Participant struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar string  `json:"avatar,omitempty"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// Preview is link metadata attached to a chat message when the text contained
// a URL and the fetch succeeded. Absent otherwise.
type Preview struct {
	Title     string `json:"title"`
	ImageURL  string `json:"imageUrl"`
	SourceURL string `json:"sourceUrl"`
}

// Message is one chat entry, immutable once created. Name and Avatar are
// snapshots of the sender at send time, not live references. System messages
// (join/leave/rename announcements) carry no sender id and are never
// persisted.
type Message struct {
	SenderID string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Avatar   string   `json:"avatar,omitempty"`
	Text     string   `json:"text"`
	IsSystem bool     `json:"isSystem"`
	Time     int64    `json:"time"`
	Preview  *Preview `json:"preview,omitempty"`
}

// SystemMessage builds a broadcast-only server announcement.
func SystemMessage(text string) Message {
	return Message{
		Name:     SystemName,
		Text:     text,
		IsSystem: true,
		Time:     time.Now().UnixMilli(),
	}
}
