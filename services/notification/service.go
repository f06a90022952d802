package notifsvc

import (
	"fmt"
	"net/mail"

	"github.com/trezcool/darasa/core"
)

// emailEventService fans domain events out as plain-text emails to the
// school's notification inbox. Delivery is fire-and-forget: the originating
// mutation never waits on it and never fails because of it.
type emailEventService struct {
	mailer core.EmailService
	logger core.Logger
	to     []mail.Address
}

var _ core.EventService = (*emailEventService)(nil)

func NewEmailEventService(mailer core.EmailService, logger core.Logger, to ...mail.Address) *emailEventService {
	return &emailEventService{mailer: mailer, logger: logger, to: to}
}

func (svc emailEventService) Publish(events ...core.Event) {
	for _, evt := range events {
		evt := evt
		go func() {
			svc.logger.Info(fmt.Sprintf("event: %s %s - %s", evt.EntityType, evt.EntityID, evt.Summary))
			svc.mailer.SendMessages(&core.EmailMessage{
				To:      svc.to,
				Subject: subject(evt),
				Body:    fmt.Sprintf("%s\r\n\r\nClass: %s\r\nRef: %s\r\n", evt.Summary, evt.ClassRef, evt.EntityID),
			})
		}()
	}
}

func subject(evt core.Event) string {
	switch evt.EntityType {
	case "attendance_session":
		return "Attendance finalized"
	case "homework_assignment":
		return "Homework completed"
	case "grade_record":
		return "Grades updated"
	}
	return "Ledger update"
}
