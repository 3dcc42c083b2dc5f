package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/craftline/outreach-cli/internal/model"
	"github.com/craftline/outreach-cli/pkg/anthropic"
)

// draftLead composes a message for one claimed lead and stores it on the
// row. Follow-up touches get the thread's prior messages as context so the
// composition can reference earlier contact.
func (d *Dispatcher) draftLead(ctx context.Context, lead *model.Lead) error {
	var history []model.Message
	if lead.IsFollowUp() {
		var err error
		history, err = d.store.ThreadMessages(ctx, lead.ThreadRoot())
		if err != nil {
			return eris.Wrap(err, "jobs: load thread history")
		}
	}

	draft, err := d.drafter.Compose(ctx, ComposeRequest{
		Lead:     lead,
		History:  history,
		FollowUp: lead.IsFollowUp(),
	})
	if err != nil {
		return eris.Wrap(err, "jobs: compose draft")
	}
	if draft.Subject == "" || draft.Body == "" {
		return eris.New("jobs: drafter returned an empty message")
	}

	return d.store.ResolveDraft(ctx, lead.ID, model.DraftDrafted, draft.Subject, draft.Body)
}

const drafterSystemPrompt = `You write short, personable outreach emails for a small business.
Reply with exactly this format:

Subject: <subject line>

<body>

No preamble, no markdown, no signature placeholders.`

// ClaudeDrafter composes outreach messages with the Anthropic messages API.
type ClaudeDrafter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	style     *StyleConfig
}

// DrafterOption configures a ClaudeDrafter.
type DrafterOption func(*ClaudeDrafter)

// WithStyle applies an operator-provided drafting style.
func WithStyle(s *StyleConfig) DrafterOption {
	return func(c *ClaudeDrafter) { c.style = s }
}

// NewClaudeDrafter creates the drafting adapter.
func NewClaudeDrafter(client anthropic.Client, modelName string, maxTokens int64, opts ...DrafterOption) *ClaudeDrafter {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	c := &ClaudeDrafter{client: client, model: modelName, maxTokens: maxTokens}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ClaudeDrafter) Compose(ctx context.Context, req ComposeRequest) (*Draft, error) {
	system := drafterSystemPrompt
	if c.style != nil {
		system += "\n\n" + c.style.promptAddendum()
	}

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildComposePrompt(req)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "drafter: create message")
	}

	subject, body, ok := parseDraft(resp.Text())
	if !ok {
		return nil, eris.New("drafter: response missing subject line")
	}
	return &Draft{Subject: subject, Body: body}, nil
}

func buildComposePrompt(req ComposeRequest) string {
	var b strings.Builder

	lead := req.Lead
	if req.FollowUp {
		fmt.Fprintf(&b, "Write a follow-up email (touch %d) to a contact we emailed before.\n", req.SequenceOrdinal())
		b.WriteString("Reference our earlier note briefly without repeating it.\n\n")
	} else {
		b.WriteString("Write a first outreach email to a new contact.\n\n")
	}

	fmt.Fprintf(&b, "Recipient: %s\n", firstNonEmptyString(lead.ContactName, lead.Name, lead.NaturalKey))
	if lead.Name != "" {
		fmt.Fprintf(&b, "Business: %s\n", lead.Name)
	}
	if lead.URL != "" {
		fmt.Fprintf(&b, "Site: %s\n", lead.URL)
	}
	if lead.SourceType == model.SourceSocial {
		fmt.Fprintf(&b, "Platform: %s\n", lead.SourcePlatform)
	}

	if len(req.History) > 0 {
		b.WriteString("\nPrevious messages in this thread:\n")
		for _, m := range req.History {
			fmt.Fprintf(&b, "--- Sent %s\nSubject: %s\n%s\n", m.SentAt.Format("2006-01-02"), m.Subject, m.Body)
		}
	}
	return b.String()
}

// SequenceOrdinal is the 1-based position of this touch for prompt text.
func (r ComposeRequest) SequenceOrdinal() int {
	return r.Lead.SequenceIndex + 1
}

// parseDraft splits a "Subject: ..." header line from the body.
func parseDraft(text string) (subject, body string, ok bool) {
	text = strings.TrimSpace(text)
	lines := strings.SplitN(text, "\n", 2)
	if !strings.HasPrefix(lines[0], "Subject:") {
		return "", "", false
	}
	subject = strings.TrimSpace(strings.TrimPrefix(lines[0], "Subject:"))
	if len(lines) == 2 {
		body = strings.TrimSpace(lines[1])
	}
	if subject == "" || body == "" {
		return "", "", false
	}
	return subject, body, true
}

func firstNonEmptyString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
