package models

import "time"

// Agent is a human or bot operator that can be assigned to chats.
type Agent struct {
	ID         string
	UpstreamID string
	Name       string
	Username   *string // unique key when present
	Email      *string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Department is a routing group chats can be assigned to.
type Department struct {
	ID            string
	UpstreamCode  string // unique
	Name          string
	IsActive      bool
	IsLeaf        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
