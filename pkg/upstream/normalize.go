package upstream

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// flexString decodes a JSON value that may arrive as a string or a number,
// coercing either to a string (spec §4.1: "contact_id may arrive as string
// or number").
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	// Not a quoted string: treat the raw JSON literal (a number) as text.
	*s = flexString(trimmed)
	return nil
}

// flexName decodes a field that may arrive as a bare string or an object
// carrying at least a "name" key (spec §4.1: "agent and contact fields may
// arrive as string or object {name,...} → normalize to string name").
type flexName string

func (n *flexName) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*n = ""
		return nil
	}
	if trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*n = flexName(str)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*n = flexName(obj.Name)
	return nil
}

type contactWire struct {
	ContactID        flexString         `json:"contact_id"`
	FullName         string             `json:"full_name"`
	Mobile           *string            `json:"mobile"`
	Landline         *string            `json:"landline"`
	Email            *string            `json:"email"`
	Identification   *string            `json:"identification"`
	Address          *string            `json:"address"`
	City             *string            `json:"city"`
	Country          *string            `json:"country"`
	Company          *string            `json:"company"`
	CustomAttributes map[string]any     `json:"custom_attributes"`
	Tags             []ContactTag       `json:"tags"`
	MerchantID       *string            `json:"merchant_id"`
	CreatedAt        *time.Time         `json:"created_at"`
	UpdatedAt        *time.Time         `json:"updated_at"`
}

func normalizeContact(raw json.RawMessage) (RawContact, error) {
	var wire contactWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return RawContact{}, &SchemaError{Endpoint: "/contacts/export", Field: "contact", Reason: err.Error()}
	}
	if wire.ContactID == "" {
		return RawContact{}, &SchemaError{Endpoint: "/contacts/export", Field: "contact_id", Reason: "missing"}
	}

	return RawContact{
		ContactID:        string(wire.ContactID),
		FullName:         wire.FullName,
		Mobile:           wire.Mobile,
		Landline:         wire.Landline,
		Email:            wire.Email,
		Identification:   wire.Identification,
		Address:          wire.Address,
		City:             wire.City,
		Country:          wire.Country,
		Company:          wire.Company,
		CustomAttributes: wire.CustomAttributes,
		Tags:             wire.Tags,
		MerchantID:       wire.MerchantID,
		CreatedAt:        wire.CreatedAt,
		UpdatedAt:        wire.UpdatedAt,
	}, nil
}

type messageWire struct {
	Text        *string   `json:"text"`
	Type        string    `json:"type"`
	Incoming    bool      `json:"incoming"`
	Timestamp   time.Time `json:"timestamp"`
	Caption     *string   `json:"caption"`
	ImageURL    *string   `json:"image_url"`
	FileURL     *string   `json:"file_url"`
	Broadcasted bool      `json:"broadcasted"`
}

type chatWire struct {
	ChatID          flexString     `json:"chat_id"`
	Agent           *flexName      `json:"agent"`
	Contact         *flexName      `json:"contact"`
	ContactID       *string        `json:"contact_id"`
	Department      *string        `json:"department"`
	Provider        string         `json:"provider"`
	Status          string         `json:"status"`
	Alias           *string        `json:"alias"`
	Tags            []string       `json:"tags"`
	CreatedAt       time.Time      `json:"created_at"`
	OpenedAt        *time.Time     `json:"opened_at"`
	PickedUpAt      *time.Time     `json:"picked_up_at"`
	ResponseAt      *time.Time     `json:"response_at"`
	ClosedAt        *time.Time     `json:"closed_at"`
	Duration        *flexString    `json:"duration"`
	PollStartedAt   *time.Time     `json:"poll_started_at"`
	PollCompletedAt *time.Time     `json:"poll_completed_at"`
	PollAbandonedAt *time.Time     `json:"poll_abandoned_at"`
	PollResponse    map[string]any `json:"poll_response"`
	Messages        []messageWire  `json:"messages"`
}

func normalizeChat(raw json.RawMessage) (RawChat, error) {
	var wire chatWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return RawChat{}, &SchemaError{Endpoint: "/chats/export", Field: "chat", Reason: err.Error()}
	}
	if wire.ChatID == "" {
		return RawChat{}, &SchemaError{Endpoint: "/chats/export", Field: "chat_id", Reason: "missing"}
	}

	chat := RawChat{
		ChatID:          string(wire.ChatID),
		ContactID:       wire.ContactID,
		DepartmentCode:  wire.Department,
		Provider:        wire.Provider,
		Status:          NormalizeStatus(wire.Status),
		Alias:           wire.Alias,
		Tags:            wire.Tags,
		CreatedAt:       wire.CreatedAt,
		OpenedAt:        wire.OpenedAt,
		PickedUpAt:      wire.PickedUpAt,
		ResponseAt:      wire.ResponseAt,
		ClosedAt:        wire.ClosedAt,
		PollStartedAt:   wire.PollStartedAt,
		PollCompletedAt: wire.PollCompletedAt,
		PollAbandonedAt: wire.PollAbandonedAt,
		PollResponse:    wire.PollResponse,
	}
	if wire.Agent != nil {
		name := string(*wire.Agent)
		chat.AgentName = &name
	}
	if wire.Contact != nil {
		name := string(*wire.Contact)
		chat.ContactName = &name
	}
	if wire.Duration != nil {
		d := string(*wire.Duration)
		chat.Duration = &d
	}
	for _, m := range wire.Messages {
		chat.Messages = append(chat.Messages, RawMessage{
			Text:        m.Text,
			Type:        m.Type,
			Incoming:    m.Incoming,
			Timestamp:   m.Timestamp,
			Caption:     m.Caption,
			ImageURL:    m.ImageURL,
			FileURL:     m.FileURL,
			Broadcasted: m.Broadcasted,
		})
	}

	return chat, nil
}

// legacyStatusAliases maps deprecated upstream status strings to their
// current canonical equivalent (spec §4.1).
var legacyStatusAliases = map[string]string{
	"OPEN":     "PICKED_UP",
	"PENDING":  "OPENED",
	"FINISHED": "CLOSED",
}

var canonicalStatuses = map[string]bool{
	"BOT_CHATTING":        true,
	"OPENED":              true,
	"PICKED_UP":           true,
	"RESPONDED_BY_AGENT":  true,
	"CLOSED":              true,
	"COMPLETING_POLL":     true,
	"COMPLETED_POLL":      true,
	"ABANDONED_POLL":      true,
}

// NormalizeStatus maps an upstream status string to a canonical chat status
// (spec §4.1): exact upper-case values pass through, lower/mixed case with
// spaces or underscores is canonicalized, legacy aliases are translated,
// and anything unrecognized falls back to OPENED with a logged warning.
func NormalizeStatus(raw string) string {
	canon := strings.ToUpper(strings.TrimSpace(raw))
	canon = strings.ReplaceAll(canon, " ", "_")

	if canonicalStatuses[canon] {
		return canon
	}
	if mapped, ok := legacyStatusAliases[canon]; ok {
		return mapped
	}

	slog.Warn("unrecognized upstream chat status, defaulting to OPENED", "raw_status", raw)
	return "OPENED"
}
