package domain

import "time"

// TicketResponse is a message in a ticket thread. Internal notes are only
// visible to agents and admins.
type TicketResponse struct {
	ID             int64
	TicketID       int64
	AuthorID       int64
	Content        string
	IsInternalNote bool
	DatePosted     time.Time

	ResponderName string
}
