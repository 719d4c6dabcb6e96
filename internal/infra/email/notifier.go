package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/shanyukollipara/clips-ai/internal/domain/port"
	"go.uber.org/zap"
)

var _ port.FailureNotifier = (*SMTPNotifier)(nil)

// SMTPNotifier emails an operator address when a job fails
// permanently. There are no retries behind it, so every failure mail
// is final.
type SMTPNotifier struct {
	host   string
	port   int
	from   string
	to     string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from, to string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, to: to, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, jobID, sourceURL, stage, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	subject := fmt.Sprintf("Clips AI - Processing Failed [Job %s]", jobID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"A clip generation job has failed.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Source: %s\r\n"+
			"Stage: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Submit the video again or inspect the worker logs.\r\n\r\n"+
			"-- Clips AI Processing Service",
		jobID, sourceURL, stage, errorMsg,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, n.to, subject, body,
	)

	err := smtp.SendMail(addr, nil, n.from, []string{n.to}, []byte(msg))
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", n.to),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", n.to),
		zap.String("job_id", jobID),
	)
	return nil
}
