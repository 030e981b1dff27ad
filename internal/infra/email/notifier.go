package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails error notifications to an operator address. Other
// severities are ignored.
type SMTPNotifier struct {
	host     string
	port     int
	from     string
	to       string
	logger   *zap.Logger
	sendMail sendFunc
}

func NewSMTPNotifier(host string, port int, from, to string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, to: to, logger: logger, sendMail: smtp.SendMail}
}

func (n *SMTPNotifier) Notify(_ context.Context, note entity.Notification) {
	if note.Severity != entity.SeverityError {
		return
	}
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	subject := fmt.Sprintf("Chronophoto - %s [Session %s]", note.Title, note.SessionID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"An editing session reported an error.\r\n\r\n"+
			"Session: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"-- Chronophoto",
		note.SessionID, note.Description,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, n.to, subject, body,
	)

	if err := n.sendMail(addr, nil, n.from, []string{n.to}, []byte(msg)); err != nil {
		n.logger.Error("failed to send notification email",
			zap.String("to", n.to),
			zap.String("session_id", note.SessionID.String()),
			zap.Error(err),
		)
		return
	}

	n.logger.Info("notification email sent",
		zap.String("to", n.to),
		zap.String("session_id", note.SessionID.String()),
	)
}
