package model

import "time"

// Message is one sent outreach message, kept per thread so follow-up drafting
// can reference prior contact.
type Message struct {
	ID                string    `json:"id" db:"id"`
	LeadID            string    `json:"lead_id" db:"lead_id"`
	ThreadID          string    `json:"thread_id" db:"thread_id"`
	SequenceIndex     int       `json:"sequence_index" db:"sequence_index"`
	Subject           string    `json:"subject" db:"subject"`
	Body              string    `json:"body" db:"body"`
	ProviderMessageID string    `json:"provider_message_id,omitempty" db:"provider_message_id"`
	SentAt            time.Time `json:"sent_at" db:"sent_at"`
}

// Settings is the process-wide automation master switch. The dispatcher
// re-reads it before accepting automated job submissions; manual submissions
// bypass it deliberately.
type Settings struct {
	AutomationEnabled bool      `json:"automation_enabled" db:"automation_enabled"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
