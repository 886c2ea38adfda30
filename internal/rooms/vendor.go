package rooms

import (
	"context"
	"errors"

	"mentorship-platform/internal/calls"
)

// Vendor is the room-vendor contract used by business logic.
//
// Rules:
//   - No vendor SDK or HTTP calls outside vendor adapters.
//   - Request/response types stay vendor-agnostic.
type Vendor interface {
	Name() string
	HealthCheck(ctx context.Context) error

	CreateRoom(ctx context.Context, req CreateRoomRequest) (VendorRoom, error)
	StartRecording(ctx context.Context, roomID string) (string, error)
	RecordingStatus(ctx context.Context, recordingID string) (RecordingState, error)
}

var (
	ErrVendorDisabled = errors.New("rooms: vendor not configured")
	ErrVendorResponse = errors.New("rooms: unexpected vendor response")
)

type CreateRoomRequest struct {
	CallType    calls.Type
	Name        string
	Description string
}

// VendorRoom is a room created at the vendor with one join code per role.
type VendorRoom struct {
	RoomID    string
	HostCode  string
	GuestCode string
}

// RecordingState is the vendor's view of a recording.
type RecordingState struct {
	Status string
	URL    string
}

const (
	RecordingCompleted = "completed"
	RecordingFailed    = "failed"
)

// Done reports whether the recording reached a final state.
func (s RecordingState) Done() bool {
	return s.Status == RecordingCompleted || s.Status == RecordingFailed
}
