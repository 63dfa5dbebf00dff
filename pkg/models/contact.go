package models

import "time"

// SyncSource records how a Contact first entered the store and whether it
// has since been upgraded to an authoritative record.
type SyncSource string

const (
	// SyncSourceChatEmbedded marks a stub contact created from fields
	// embedded in a chat payload. Always needsFullSync=true.
	SyncSourceChatEmbedded SyncSource = "chat_embedded"
	// SyncSourceContactsAPI marks a contact created directly from the
	// contacts export endpoint.
	SyncSourceContactsAPI SyncSource = "contacts_api"
	// SyncSourceUpgraded marks a contact that started as chat_embedded and
	// was later reconciled with an authoritative contacts-export record.
	SyncSourceUpgraded SyncSource = "upgraded"
)

// ContactTag is a single named tag assigned to a contact, in assignment order.
type ContactTag struct {
	Name       string    `json:"name"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Contact is the normalized, deduplicated representation of an upstream
// contact. A Contact may start life as a chat-embedded stub and later be
// upgraded to an authoritative record (see SyncSource).
type Contact struct {
	ID                string
	UpstreamID        string // unique
	FullName          string
	Mobile            *string
	Landline          *string
	Email             *string
	Identification    *string
	Address           *string
	City              *string
	Country           *string
	Company           *string
	CustomAttributes  map[string]any
	Tags              []ContactTag
	MerchantID        *string
	UpstreamCreatedAt *time.Time
	UpstreamUpdatedAt *time.Time
	SyncSource        SyncSource
	NeedsFullSync     bool
	LastSyncAt        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsStub reports whether the contact has never been reconciled against the
// authoritative contacts export.
func (c *Contact) IsStub() bool {
	return c.SyncSource == SyncSourceChatEmbedded
}
