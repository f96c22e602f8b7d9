package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		command string
		args    string
	}{
		{"/start", "start", ""},
		{"/persona romantic", "persona", "romantic"},
		{"/persona  romantic ", "persona", "romantic"},
		{"/name Alex Smith", "name", "Alex Smith"},
		{"/PERSONA coach", "persona", "coach"},
		{"/reset@companion_bot", "reset", ""},
		{"/mode@companion_bot evening", "mode", "evening"},
		{"  /help  ", "help", ""},
	}

	for _, tt := range tests {
		command, args := parseCommand(tt.input)
		assert.Equal(t, tt.command, command, "input %q", tt.input)
		assert.Equal(t, tt.args, args, "input %q", tt.input)
	}
}
