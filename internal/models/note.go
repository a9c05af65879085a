package models

import "time"

// InboundMessage is one text message taken from a platform update.
type InboundMessage struct {
	UpdateID  int64
	UserID    int64
	Timestamp time.Time
	Text      string
}

type Note struct {
	ID      int64
	Date    time.Time
	Text    string
	OwnerID int64
}

type Tag struct {
	ID         int64
	Name       string
	Definition string
}

type User struct {
	ID          int64
	FirstSeenAt time.Time
	LastNoteID  *int64
}
