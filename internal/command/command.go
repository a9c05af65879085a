// Package command turns inbound chat text into typed bot commands.
package command

import "time"

// Kind names one entry of the fixed command vocabulary.
type Kind int

const (
	KindStart Kind = iota + 1
	KindWrite
	KindWriteTag
	KindReadLast
	KindRead
	KindReadAll
	KindReadTag
	KindTag
	KindTagAll
)

var kindNames = map[Kind]string{
	KindStart:    "start",
	KindWrite:    "write",
	KindWriteTag: "write_tag",
	KindReadLast: "read_last",
	KindRead:     "read",
	KindReadAll:  "read_all",
	KindReadTag:  "read_tag",
	KindTag:      "tag",
	KindTagAll:   "tag_all",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is implemented only by the parameter structs in this package.
type Command interface {
	Kind() Kind
}

type Start struct {
	UserID int64
	Date   time.Time
}

type Write struct {
	UserID   int64
	Date     time.Time
	Text     string
	TagNames []string
}

type WriteTag struct {
	TagName    string
	Definition string
}

type ReadLast struct {
	UserID int64
}

type Read struct {
	UserID int64
	NoteID int64
}

type ReadAll struct {
	UserID int64
}

type ReadTag struct {
	UserID  int64
	TagName string
}

type Tag struct {
	TagNames []string
}

type TagAll struct{}

func (Start) Kind() Kind    { return KindStart }
func (Write) Kind() Kind    { return KindWrite }
func (WriteTag) Kind() Kind { return KindWriteTag }
func (ReadLast) Kind() Kind { return KindReadLast }
func (Read) Kind() Kind     { return KindRead }
func (ReadAll) Kind() Kind  { return KindReadAll }
func (ReadTag) Kind() Kind  { return KindReadTag }
func (Tag) Kind() Kind      { return KindTag }
func (TagAll) Kind() Kind   { return KindTagAll }
