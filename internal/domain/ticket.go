package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Any status may
// follow any other.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityUrgent TicketPriority = "Urgent"
)

// TicketCategory classifies a request.
type TicketCategory string

const (
	TicketCategoryTechnical TicketCategory = "Technical Issue"
	TicketCategoryBilling   TicketCategory = "Billing Inquiry"
	TicketCategoryFeature   TicketCategory = "Feature Request"
	TicketCategoryOther     TicketCategory = "Other"
)

// AllTicketStatuses returns statuses in lifecycle order.
func AllTicketStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed}
}

// AllTicketPriorities returns priorities from lowest to highest.
func AllTicketPriorities() []TicketPriority {
	return []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent}
}

// AllTicketCategories returns the selectable categories.
func AllTicketCategories() []TicketCategory {
	return []TicketCategory{TicketCategoryTechnical, TicketCategoryBilling, TicketCategoryFeature, TicketCategoryOther}
}

func (s TicketStatus) Valid() bool {
	for _, v := range AllTicketStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

func (p TicketPriority) Valid() bool {
	for _, v := range AllTicketPriorities() {
		if p == v {
			return true
		}
	}
	return false
}

func (c TicketCategory) Valid() bool {
	for _, v := range AllTicketCategories() {
		if c == v {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests. AuthorName and AgentName
// are read-only projections of the referenced users.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Status      TicketStatus
	DatePosted  time.Time
	LastUpdated time.Time
	AuthorID    int64
	AgentID     *int64

	AuthorName string
	AgentName  *string
}

// IsAuthor reports whether userID submitted the ticket.
func (t *Ticket) IsAuthor(userID int64) bool {
	return t.AuthorID == userID
}

// IsAssignedTo reports whether userID is the assigned agent.
func (t *Ticket) IsAssignedTo(userID int64) bool {
	return t.AgentID != nil && *t.AgentID == userID
}

// Touch advances LastUpdated to now, never moving it backwards.
func (t *Ticket) Touch(now time.Time) {
	if now.After(t.LastUpdated) {
		t.LastUpdated = now
	}
}
