package smtp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/theatro/theatro/internal/domain/entity"
	"github.com/theatro/theatro/pkg/logger/types"
	"gopkg.in/gomail.v2"
)

// Sender is the part of gomail.Dialer the client uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Options struct {
	From   string // "Theatro <theatro@example.org>"
	Domain string // used to build Message-ID headers
}

// Client renders notification templates and delivers them over SMTP.
type Client struct {
	sender Sender
	opts   Options
	logger *types.Logger
}

// NewClient initializes Client.
func NewClient(sender Sender, opts Options, logger *types.Logger) *Client {
	return &Client{
		sender: sender,
		opts:   opts,
		logger: logger,
	}
}

// Send renders the template of kind with data and mails it to recipient.
// Failures are reported in the result, never returned or panicked.
func (c *Client) Send(ctx context.Context, recipient string, kind entity.NotificationKind, data entity.NotificationData) (result entity.NotificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = entity.NotificationResult{Err: fmt.Errorf("smtp: panic while sending %s: %v", kind, r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return entity.NotificationResult{Err: err}
	}

	msg, err := c.message(recipient, kind, data)
	if err != nil {
		c.logger.Errorf("failed to render %s mail for %s: %v", kind, recipient, err)
		return entity.NotificationResult{Err: err}
	}

	if err = c.sender.DialAndSend(msg); err != nil {
		c.logger.Errorf("failed to send %s mail to %s: %v", kind, recipient, err)
		return entity.NotificationResult{Err: err}
	}

	c.logger.Debugf("Mail successfully sent (kind=%s, to=%s)", kind, recipient)
	return entity.NotificationResult{Success: true}
}

func (c *Client) message(recipient string, kind entity.NotificationKind, data entity.NotificationData) (*gomail.Message, error) {
	subject, html, err := render(kind, data)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("Message-ID", generateMessageID(c.opts.Domain))
	msg.SetHeader("Date", time.Now().Format(time.RFC1123Z))
	msg.SetHeader("From", c.opts.From)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	for _, attachment := range data.Attachments {
		content := attachment.Data
		msg.Attach(attachment.Name,
			gomail.SetHeader(map[string][]string{"Content-Type": {attachment.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, errCopy := io.Copy(w, bytes.NewReader(content))
				return errCopy
			}),
		)
	}
	return msg, nil
}

func generateMessageID(domain string) string {
	uniqueID := uuid.New().String()
	return fmt.Sprintf("<%s@%s>", uniqueID, domain)
}
