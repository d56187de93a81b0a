// Package email delivers invoice mail over SMTP.
package email

import "context"

// Message is one outgoing mail. Attachment is optional; when set it is
// sent as a PDF named AttachmentName.
type Message struct {
	To             []string
	Subject        string
	HTMLBody       string
	Attachment     []byte
	AttachmentName string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

type NoOpProvider struct {
	Sent []Message
}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	p.Sent = append(p.Sent, msg)
	return nil
}
