package rooms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mentorship-platform/internal/calls"
	"mentorship-platform/pkg/logger"
	"mentorship-platform/pkg/utils"
)

// Room is what a booking hands to its participants.
type Room struct {
	RoomID       string `json:"room_id"`
	HostCode     string `json:"host_code,omitempty"`
	GuestCode    string `json:"guest_code,omitempty"`
	HostJoinURL  string `json:"host_join_url"`
	GuestJoinURL string `json:"guest_join_url"`
	// Fallback is set when the room was generated locally.
	Fallback bool `json:"fallback"`
}

// Provisioner creates rooms through the vendor and never fails a booking
// because of it: on any vendor error it generates a local room and URLs.
type Provisioner struct {
	vendor      Vendor
	frontendURL string
	subdomain   string
	clock       func() time.Time
	newRoomID   func() (string, error)
}

// NewProvisioner builds a provisioner. vendor may be nil, in which case every
// room uses the fallback.
func NewProvisioner(vendor Vendor, frontendURL, subdomain string) *Provisioner {
	return &Provisioner{
		vendor:      vendor,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		subdomain:   subdomain,
		clock:       time.Now,
		newRoomID:   func() (string, error) { return utils.RoomID(12) },
	}
}

// Provision returns a room for a one-to-one session with mentorID.
func (p *Provisioner) Provision(ctx context.Context, callType calls.Type, mentorID string) (Room, error) {
	if callType.NeedsVendorRoom() && p.vendor != nil {
		vr, err := p.vendor.CreateRoom(ctx, CreateRoomRequest{
			CallType:    callType,
			Name:        fmt.Sprintf("%s-booking-%d", callType, p.clock().UnixMilli()),
			Description: "Mentorship Session",
		})
		if err == nil {
			return p.vendorRoom(ctx, callType, mentorID, vr), nil
		}
		logger.From(ctx).Warn("room vendor failed, using fallback room",
			"vendor", p.vendor.Name(),
			"call_type", string(callType),
			"err", err,
		)
	}
	return p.fallback(callType, mentorID)
}

func (p *Provisioner) vendorRoom(ctx context.Context, callType calls.Type, mentorID string, vr VendorRoom) Room {
	if p.subdomain == "" {
		r := Room{RoomID: vr.RoomID, HostCode: vr.HostCode, GuestCode: vr.GuestCode}
		r.HostJoinURL = p.fallbackURL(callType, mentorID, vr.RoomID)
		r.GuestJoinURL = r.HostJoinURL
		return r
	}
	return Room{
		RoomID:       vr.RoomID,
		HostCode:     vr.HostCode,
		GuestCode:    vr.GuestCode,
		HostJoinURL:  fmt.Sprintf("https://%s.app.100ms.live/meeting/%s", p.subdomain, vr.HostCode),
		GuestJoinURL: fmt.Sprintf("https://%s.app.100ms.live/meeting/%s", p.subdomain, vr.GuestCode),
	}
}

func (p *Provisioner) fallback(callType calls.Type, mentorID string) (Room, error) {
	id, err := p.newRoomID()
	if err != nil {
		return Room{}, err
	}
	u := p.fallbackURL(callType, mentorID, id)
	return Room{RoomID: id, HostJoinURL: u, GuestJoinURL: u, Fallback: true}, nil
}

// fallbackURL is {frontend}/user/{chat|audio|video}/{mentorId}/{roomId}.
func (p *Provisioner) fallbackURL(callType calls.Type, mentorID, roomID string) string {
	return fmt.Sprintf("%s/user/%s/%s/%s", p.frontendURL, callType, mentorID, roomID)
}

// StartRecording asks the vendor to record roomID.
func (p *Provisioner) StartRecording(ctx context.Context, roomID string) (string, error) {
	if p.vendor == nil {
		return "", ErrVendorDisabled
	}
	return p.vendor.StartRecording(ctx, roomID)
}

func (p *Provisioner) RecordingStatus(ctx context.Context, recordingID string) (RecordingState, error) {
	if p.vendor == nil {
		return RecordingState{}, ErrVendorDisabled
	}
	return p.vendor.RecordingStatus(ctx, recordingID)
}
