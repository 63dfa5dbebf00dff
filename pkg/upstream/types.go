package upstream

import "time"

// Pagination mirrors the upstream's paging envelope (spec §4.1).
type Pagination struct {
	Total       int  `json:"total"`
	Exported    int  `json:"exported"`
	HasNextPage bool `json:"hasNextPage"`
}

// RawContact is one normalized contact record straight off the wire, with
// every field typed, for the Transform Engine to reconcile.
type RawContact struct {
	ContactID        string
	FullName         string
	Mobile           *string
	Landline         *string
	Email            *string
	Identification   *string
	Address          *string
	City             *string
	Country          *string
	Company          *string
	CustomAttributes map[string]any
	Tags             []ContactTag
	MerchantID       *string
	CreatedAt        *time.Time
	UpdatedAt        *time.Time
}

// ContactTag is one entry of a contact's tag sequence (spec §4.1: "tags on
// contacts is a sequence of {name,assignedAt}").
type ContactTag struct {
	Name       string    `json:"name"`
	AssignedAt time.Time `json:"assignedAt"`
}

// RawChat is one normalized chat record straight off the wire, before the
// Transform Engine resolves agent/contact/department foreign keys.
type RawChat struct {
	ChatID         string
	AgentName      *string // normalized from string-or-object
	ContactID      *string
	ContactName    *string // normalized from string-or-object
	DepartmentCode *string
	Provider       string
	Status         string // normalized canonical status, see normalize.go
	Alias          *string
	Tags           []string
	CreatedAt      time.Time
	OpenedAt       *time.Time
	PickedUpAt     *time.Time
	ResponseAt     *time.Time
	ClosedAt       *time.Time
	Duration       *string // raw "H:M:S[:ms]" or numeric-seconds text, see pkg/transform/chats.go
	PollStartedAt  *time.Time
	PollCompletedAt *time.Time
	PollAbandonedAt *time.Time
	PollResponse   map[string]any
	Messages       []RawMessage
}

// RawMessage is one message within a RawChat.
type RawMessage struct {
	Text        *string
	Type        string
	Incoming    bool
	Timestamp   time.Time
	Caption     *string
	ImageURL    *string
	FileURL     *string
	Broadcasted bool // spec §4.5.2 step 4: direction detection input
}

// ContactsPage is one page of GetContacts results.
type ContactsPage struct {
	Data       []RawContact
	Pagination Pagination
}

// ChatsPage is one page of GetChats results.
type ChatsPage struct {
	Data       []RawChat
	Pagination Pagination
}

// ContactsQuery parameters for GetContacts (spec §4.1).
type ContactsQuery struct {
	Offset       int
	Limit        int
	UpdatedFrom  *time.Time
	UpdatedTo    *time.Time
	Mobile       *string // contactFilter.mobile, spec §9
	UpstreamID   *string // contactFilter.upstreamId, spec §9
}

// ChatsQuery parameters for GetChats (spec §4.1).
type ChatsQuery struct {
	Offset        int
	Limit         int
	DateRangeFrom *time.Time
	DateRangeTo   *time.Time
}
