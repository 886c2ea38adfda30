package calls

import (
	"errors"
	"strings"
)

// Type is the closed set of communication modes a session, slot, package or
// price entry can carry. Every switch over Type must handle all values.
type Type string

const (
	TypeChat  Type = "chat"
	TypeAudio Type = "audio"
	TypeVideo Type = "video"
	TypeGroup Type = "group"
)

var ErrUnknownType = errors.New("unknown call type")

// ParseType normalizes and validates a wire value.
func ParseType(v string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(v)))
	if !t.Valid() {
		return "", ErrUnknownType
	}
	return t, nil
}

func (t Type) Valid() bool {
	switch t {
	case TypeChat, TypeAudio, TypeVideo, TypeGroup:
		return true
	default:
		return false
	}
}

// OneToOne reports whether the type can be booked between a single user and mentor.
func (t Type) OneToOne() bool {
	switch t {
	case TypeChat, TypeAudio, TypeVideo:
		return true
	case TypeGroup:
		return false
	default:
		return false
	}
}

// Recorded reports whether joining a session of this type starts a vendor recording.
func (t Type) Recorded() bool {
	switch t {
	case TypeAudio, TypeVideo, TypeGroup:
		return true
	case TypeChat:
		return false
	default:
		return false
	}
}

// NeedsVendorRoom reports whether a media room must be provisioned at the vendor.
func (t Type) NeedsVendorRoom() bool {
	switch t {
	case TypeAudio, TypeVideo, TypeGroup:
		return true
	case TypeChat:
		return false
	default:
		return false
	}
}
