package command

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ahsanfayaz52/notebot/internal/models"
)

// tagRe ends a tag name at any rune unicode.IsSpace reports, the same
// boundary /write_tag and /tag split on.
var (
	commandRe = regexp.MustCompile(`(?s)^/(\w+)\s?(.*)$`)
	tagRe     = regexp.MustCompile(`#([^\s\v\x{85}\p{Z}]+)`)
)

// Parse converts one inbound message into a command. Text that is not a
// slash command, or names a command outside the vocabulary, yields a nil
// Command and a nil error. Invalid parameters yield an error matching
// ErrMalformed.
func Parse(msg models.InboundMessage) (Command, error) {
	m := commandRe.FindStringSubmatch(msg.Text)
	if m == nil {
		return nil, nil
	}
	kind, ok := kindsByName[m[1]]
	if !ok {
		return nil, nil
	}
	tail := m[2]

	switch kind {
	case KindStart:
		return Start{UserID: msg.UserID, Date: msg.Timestamp}, nil
	case KindWrite:
		return Write{
			UserID:   msg.UserID,
			Date:     msg.Timestamp,
			Text:     tail,
			TagNames: TagNames(tail),
		}, nil
	case KindWriteTag:
		return parseWriteTag(tail)
	case KindReadLast:
		return ReadLast{UserID: msg.UserID}, nil
	case KindRead:
		id, err := strconv.ParseInt(strings.TrimSpace(tail), 10, 64)
		if err != nil {
			return nil, malformed(kind, "note id %q is not a number", tail)
		}
		return Read{UserID: msg.UserID, NoteID: id}, nil
	case KindReadAll:
		return ReadAll{UserID: msg.UserID}, nil
	case KindReadTag:
		return ReadTag{UserID: msg.UserID, TagName: strings.TrimSpace(tail)}, nil
	case KindTag:
		return Tag{TagNames: strings.Fields(tail)}, nil
	case KindTagAll:
		return TagAll{}, nil
	}
	return nil, nil
}

// TagNames returns the name after every '#' in text, in order of appearance.
// Duplicates are kept.
func TagNames(text string) []string {
	matches := tagRe.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

func parseWriteTag(tail string) (Command, error) {
	i := strings.IndexFunc(tail, unicode.IsSpace)
	if i < 0 {
		return nil, malformed(KindWriteTag, "tag %q has no definition", tail)
	}
	if i == 0 {
		return nil, malformed(KindWriteTag, "missing tag name")
	}
	_, size := utf8.DecodeRuneInString(tail[i:])
	name, definition := tail[:i], tail[i+size:]
	if strings.TrimSpace(definition) == "" {
		return nil, malformed(KindWriteTag, "tag %q has no definition", name)
	}
	return WriteTag{TagName: name, Definition: definition}, nil
}
