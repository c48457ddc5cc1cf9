package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteEvent(t *testing.T) {
	tests := []struct {
		name  string
		event string
		data  string
		want  string
	}{
		{name: "plain line", data: "GET /health 200", want: "data: GET /health 200\n\n"},
		{name: "carriage return", data: "progress 10%\rprogress 20%", want: "data: progress 10%\ndata: progress 20%\n\n"},
		{name: "crlf", data: "a\r\nb", want: "data: a\ndata: b\n\n"},
		{name: "empty line", data: "", want: "data: \n\n"},
		{name: "named event", event: "error", data: "boom", want: "event: error\ndata: boom\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			writeEvent(&sb, tt.event, tt.data)
			assert.Equal(t, tt.want, sb.String())
		})
	}
}
