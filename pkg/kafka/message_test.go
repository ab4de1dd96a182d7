package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingMessage_ParseIngestMessage(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{
			name:  "valid",
			value: `{"user_id":"user-1","content":"我今天吃了苹果","content_type":"text"}`,
		},
		{
			name:  "metadata and timestamp optional",
			value: `{"user_id":"user-1","content":"喝了咖啡","metadata":{"source":"wechat"},"timestamp":"2026-03-15T08:00:00Z"}`,
		},
		{
			name:    "missing user",
			value:   `{"content":"我今天吃了苹果"}`,
			wantErr: true,
		},
		{
			name:    "missing content",
			value:   `{"user_id":"user-1"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			value:   `{"user_id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &IncomingMessage{Value: []byte(tt.value)}
			err := msg.ParseIngestMessage()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, msg.Ingest)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, msg.Ingest)
			assert.Equal(t, "user-1", msg.Ingest.UserID)
		})
	}
}
