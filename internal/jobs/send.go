package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/pkg/mailer"
)

// sendLead is the only code path that commits send_status=sent. The store
// re-validates verified+drafted on the claimed row at commit time, and a
// message history row is written for follow-up drafting to read.
func (d *Dispatcher) sendLead(ctx context.Context, lead *model.Lead) error {
	providerID, err := d.sender.Send(ctx, lead, lead.DraftSubject, lead.DraftBody)
	if err != nil {
		return eris.Wrap(err, "jobs: send lead")
	}

	if err := d.store.ResolveSend(ctx, lead.ID, model.SendSent); err != nil {
		return eris.Wrap(err, "jobs: commit send")
	}

	msg := &model.Message{
		ID:                uuid.New().String(),
		LeadID:            lead.ID,
		ThreadID:          lead.ThreadRoot(),
		SequenceIndex:     lead.SequenceIndex,
		Subject:           lead.DraftSubject,
		Body:              lead.DraftBody,
		ProviderMessageID: providerID,
		SentAt:            time.Now().UTC(),
	}
	// The send is already committed; a history write failure must not flip
	// the item to failed.
	if err := d.store.InsertMessage(ctx, msg); err != nil {
		zap.L().Error("jobs: record sent message",
			zap.String("lead_id", lead.ID), zap.Error(err))
	}
	return nil
}

// MailSender adapts the SMTP mailer to the dispatcher's Sender.
type MailSender struct {
	mail mailer.Sender
}

// NewMailSender creates the outbound mail adapter.
func NewMailSender(m mailer.Sender) *MailSender {
	return &MailSender{mail: m}
}

func (s *MailSender) Send(ctx context.Context, lead *model.Lead, subject, body string) (string, error) {
	receipt, err := s.mail.Send(ctx, mailer.Message{
		ToName:  firstNonEmptyString(lead.ContactName, lead.Name),
		ToEmail: lead.Email,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return "", err
	}
	return receipt.MessageID, nil
}
