package core

import "net/mail"

// Event is the domain event emitted when an aggregate reaches a notable
// state: a finalized attendance session, a completed homework assignment,
// an updated grade record. Delivery is fire-and-forget; a failed delivery
// never rolls back the originating mutation.
type Event struct {
	EntityType string // "attendance_session", "homework_assignment", "grade_record"
	EntityID   string
	ClassRef   string
	Summary    string
}

type (
	// EventService is any collaborator that can fan out domain events.
	EventService interface {
		// Publish delivers events concurrently; it never blocks the caller.
		Publish(events ...Event)
	}

	// EmailMessage is a rendered notification ready for an EmailService.
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		Body    string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently.
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.Body != "" }
