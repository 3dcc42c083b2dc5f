package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageResponseText(t *testing.T) {
	t.Parallel()

	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "Subject: Hello\n\n"},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "Hi there."},
		},
	}
	assert.Equal(t, "Subject: Hello\n\nHi there.", resp.Text())

	assert.Empty(t, (&MessageResponse{}).Text())
}

func TestToSDKMessages_RoleMapping(t *testing.T) {
	t.Parallel()

	out := toSDKMessages([]Message{
		{Role: "user", Content: "draft an email"},
		{Role: "assistant", Content: "Subject: Hi"},
		{Role: "", Content: "defaults to user"},
	})
	assert.Len(t, out, 3)
	assert.Equal(t, "user", string(out[0].Role))
	assert.Equal(t, "assistant", string(out[1].Role))
	assert.Equal(t, "user", string(out[2].Role))
}
