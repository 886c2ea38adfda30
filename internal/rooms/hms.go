package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mentorship-platform/internal/config"
)

// HMSClient talks to the 100ms management REST API.
type HMSClient struct {
	baseURL    string
	token      string
	templateID string
	http       *http.Client
}

func NewHMSClient(cfg config.RoomsConfig) *HMSClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &HMSClient{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		token:      cfg.ManagementToken,
		templateID: cfg.TemplateID,
		http:       &http.Client{Timeout: timeout},
	}
}

func (c *HMSClient) Name() string { return "100ms" }

func (c *HMSClient) HealthCheck(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/rooms?limit=1", nil, nil)
}

func (c *HMSClient) CreateRoom(ctx context.Context, req CreateRoomRequest) (VendorRoom, error) {
	body := map[string]any{
		"name":        req.Name,
		"description": req.Description,
	}
	if c.templateID != "" {
		body["template_id"] = c.templateID
	}
	var room struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/rooms", body, &room); err != nil {
		return VendorRoom{}, err
	}
	if room.ID == "" {
		return VendorRoom{}, ErrVendorResponse
	}

	host, err := c.roomCode(ctx, room.ID, "host")
	if err != nil {
		return VendorRoom{}, err
	}
	guest, err := c.roomCode(ctx, room.ID, "guest")
	if err != nil {
		return VendorRoom{}, err
	}
	return VendorRoom{RoomID: room.ID, HostCode: host, GuestCode: guest}, nil
}

func (c *HMSClient) roomCode(ctx context.Context, roomID, role string) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	if err := c.do(ctx, http.MethodPost, "/room-codes/room/"+roomID+"/role/"+role, map[string]any{}, &out); err != nil {
		return "", err
	}
	if out.Code == "" {
		return "", ErrVendorResponse
	}
	return out.Code, nil
}

func (c *HMSClient) StartRecording(ctx context.Context, roomID string) (string, error) {
	body := map[string]any{
		"meeting_url": c.baseURL + "/rooms/" + roomID,
		"resolution":  map[string]int{"width": 1280, "height": 720},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/recordings/room/"+roomID+"/start", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", ErrVendorResponse
	}
	return out.ID, nil
}

func (c *HMSClient) RecordingStatus(ctx context.Context, recordingID string) (RecordingState, error) {
	var out struct {
		Status       string `json:"status"`
		RecordingURL string `json:"recording_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/recordings/"+recordingID, nil, &out); err != nil {
		return RecordingState{}, err
	}
	return RecordingState{Status: out.Status, URL: out.RecordingURL}, nil
}

func (c *HMSClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rooms: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrVendorResponse, err)
	}
	return nil
}
