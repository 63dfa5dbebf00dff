package models

import "time"

// Provider identifies the messaging channel a chat arrived on.
type Provider string

const (
	ProviderWhatsApp  Provider = "whatsapp"
	ProviderFacebook  Provider = "facebook"
	ProviderTelegram  Provider = "telegram"
	ProviderLiveChat  Provider = "livechat"
	ProviderB2CBotAPI Provider = "b2cbotapi"
)

// IsValid reports whether p is one of the canonical providers.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderWhatsApp, ProviderFacebook, ProviderTelegram, ProviderLiveChat, ProviderB2CBotAPI:
		return true
	default:
		return false
	}
}

// ChatStatus is the chat's position in the conversation lifecycle, including
// the survey sub-states entered after the main conversation closes.
type ChatStatus string

const (
	StatusBotChatting       ChatStatus = "BOT_CHATTING"
	StatusOpened            ChatStatus = "OPENED"
	StatusPickedUp          ChatStatus = "PICKED_UP"
	StatusRespondedByAgent  ChatStatus = "RESPONDED_BY_AGENT"
	StatusClosed            ChatStatus = "CLOSED"
	StatusCompletingPoll    ChatStatus = "COMPLETING_POLL"
	StatusCompletedPoll     ChatStatus = "COMPLETED_POLL"
	StatusAbandonedPoll     ChatStatus = "ABANDONED_POLL"
)

// IsValid reports whether s is one of the canonical statuses.
func (s ChatStatus) IsValid() bool {
	switch s {
	case StatusBotChatting, StatusOpened, StatusPickedUp, StatusRespondedByAgent,
		StatusClosed, StatusCompletingPoll, StatusCompletedPoll, StatusAbandonedPoll:
		return true
	default:
		return false
	}
}

// Direction classifies who started the conversation.
type Direction string

const (
	DirectionIncoming         Direction = "incoming"
	DirectionOutgoing         Direction = "outgoing"
	DirectionOutgoingBroadcast Direction = "outgoing_broadcast"
)

// SLATimings holds the wall-clock and business-hours variants of every SLA
// metric computed by pkg/sla, plus the compliance flags derived from them.
// A nil *float64 / *bool means the metric could not be computed
// (missing anchor timestamp, or a negative/bad interval).
type SLATimings struct {
	TimeToPickupSeconds        *float64
	TimeToPickupSecondsBH      *float64
	PickupSLAMet               *bool

	FirstResponseSeconds       *float64
	FirstResponseSecondsBH     *float64
	FirstResponseSLAMet        *bool

	AvgResponseSeconds         *float64
	AvgResponseSecondsBH       *float64
	AvgResponseSLAMet          *bool

	ResolutionSeconds          *float64
	ResolutionSecondsBH        *float64
	ResolutionSLAMet           *bool

	OverallSLAMet *bool
}

// Chat is the normalized representation of a conversation thread.
type Chat struct {
	ID                string
	UpstreamID        string // unique
	AgentID           *string
	ContactID         *string
	DepartmentID      *string
	Provider          Provider
	Status            ChatStatus
	Alias             *string
	Tags              []string
	Direction         Direction
	OriginalDirection Direction // immutable after first insert

	CreatedAt   time.Time
	OpenedAt    *time.Time
	PickedUpAt  *time.Time
	ResponseAt  *time.Time // first agent message
	ClosedAt    *time.Time
	DurationSeconds *int

	PollStartedAt   *time.Time
	PollCompletedAt *time.Time
	PollAbandonedAt *time.Time
	PollResponse    map[string]any

	SLA SLATimings

	UpdatedAt time.Time
}

// ChatStatusHistory is an append-only record of a single observed status
// transition on a chat.
type ChatStatusHistory struct {
	ID               string
	ChatID           string
	PreviousStatus   ChatStatus
	NewStatus        ChatStatus
	ChangedAt        time.Time
	SyncID           *string
	TransformID      *string
}

// MessageType is the kind of content a Message carries.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// Message is a single turn within a chat. ID is derived deterministically
// from (ChatID, Timestamp, Index) — see pkg/transform/messageid.go — so
// re-ingesting the same upstream message never produces a duplicate row.
type Message struct {
	ID        string
	ChatID    string
	Text      *string
	Type      MessageType
	Incoming  bool
	Timestamp time.Time
	Caption   *string
	ImageURL  *string
	FileURL   *string
}
