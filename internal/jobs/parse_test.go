package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftline/outreach-cli/internal/model"
)

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		leadDomain string
		want       string
	}{
		{
			name:       "prefers lead domain over others",
			content:    "Contact press@agency.io or hello@acme.com for info.",
			leadDomain: "acme.com",
			want:       "hello@acme.com",
		},
		{
			name:       "falls back to first address",
			content:    "Reach us at press@agency.io or sales@agency.io.",
			leadDomain: "acme.com",
			want:       "press@agency.io",
		},
		{
			name:       "skips image asset refs",
			content:    "![logo](logo@2x.png) write to info@acme.com",
			leadDomain: "acme.com",
			want:       "info@acme.com",
		},
		{
			name:       "skips example.com placeholders",
			content:    "e.g. you@example.com, real: owner@shop.net",
			leadDomain: "",
			want:       "owner@shop.net",
		},
		{
			name:       "lowercases the match",
			content:    "Email Hello@Acme.COM today",
			leadDomain: "acme.com",
			want:       "hello@acme.com",
		},
		{
			name:    "nothing found",
			content: "no contact info on this page",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractEmail(tt.content, tt.leadDomain))
		})
	}
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantSubject string
		wantBody    string
		wantOK      bool
	}{
		{
			name:        "standard format",
			text:        "Subject: Quick hello\n\nHi there,\nLoved the shop.",
			wantSubject: "Quick hello",
			wantBody:    "Hi there,\nLoved the shop.",
			wantOK:      true,
		},
		{
			name:        "leading whitespace tolerated",
			text:        "\n\nSubject: Hey\n\nBody here.",
			wantSubject: "Hey",
			wantBody:    "Body here.",
			wantOK:      true,
		},
		{name: "missing subject header", text: "Hi there, no header."},
		{name: "subject but no body", text: "Subject: Only a header"},
		{name: "empty", text: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body, ok := parseDraft(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSubject, subject)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestBuildComposePrompt_FollowUpIncludesHistory(t *testing.T) {
	sent := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	prompt := buildComposePrompt(ComposeRequest{
		Lead: &model.Lead{
			Name:          "Acme Candles",
			NaturalKey:    "acme.com",
			URL:           "https://acme.com",
			SequenceIndex: 1,
		},
		History: []model.Message{
			{Subject: "First touch", Body: "Hello!", SentAt: sent},
		},
		FollowUp: true,
	})

	assert.Contains(t, prompt, "follow-up email (touch 2)")
	assert.Contains(t, prompt, "Recipient: Acme Candles")
	assert.Contains(t, prompt, "--- Sent 2026-03-10")
	assert.Contains(t, prompt, "Subject: First touch")
}

func TestBuildComposePrompt_InitialPrefersContactName(t *testing.T) {
	prompt := buildComposePrompt(ComposeRequest{
		Lead: &model.Lead{ContactName: "Sam", Name: "Acme Candles", NaturalKey: "acme.com"},
	})

	assert.Contains(t, prompt, "first outreach email")
	assert.Contains(t, prompt, "Recipient: Sam")
	assert.NotContains(t, prompt, "Previous messages")
}

func TestSerpAdapter_ParseProfiles(t *testing.T) {
	a := NewSerpAdapter(nil, "instagram", "instagram.com", 1)

	content := `Here are some profiles:
- https://instagram.com/candle.studio
* https://www.instagram.com/@waxandwick/
https://instagram.com/candle.studio?igsh=abc
https://tiktok.com/@someoneelse
https://instagram.com/p
not a url at all`

	got := a.parseProfiles(content, 10)
	require.Len(t, got, 2)

	assert.Equal(t, "instagram:candle.studio", got[0].NaturalKey)
	assert.Equal(t, "https://instagram.com/candle.studio", got[0].URL)
	assert.Equal(t, model.SourceSocial, got[0].SourceType)
	assert.Equal(t, "instagram", got[0].SourcePlatform)

	assert.Equal(t, "instagram:waxandwick", got[1].NaturalKey)
	assert.Equal(t, "waxandwick", got[1].Name)
}

func TestSerpAdapter_ParseProfilesHonorsLimit(t *testing.T) {
	a := NewSerpAdapter(nil, "tiktok", "tiktok.com", 1)

	content := "https://tiktok.com/@one\nhttps://tiktok.com/@two\nhttps://tiktok.com/@three"
	got := a.parseProfiles(content, 2)
	assert.Len(t, got, 2)
}
