package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccept(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	foreign, err := json.Marshal(Message{Key: "sales", Origin: "view-b", At: at})
	require.NoError(t, err)
	own, err := json.Marshal(Message{Key: "sales", Origin: "view-a", At: at})
	require.NoError(t, err)
	noKey, err := json.Marshal(Message{Origin: "view-b", At: at})
	require.NoError(t, err)

	tests := []struct {
		name string
		body []byte
		ok   bool
	}{
		{"foreign write", foreign, true},
		{"own echo", own, false},
		{"missing key", noKey, false},
		{"garbage", []byte("not json"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := accept(tt.body, "view-a")
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, "sales", ev.Key)
				assert.Equal(t, "view-b", ev.Origin)
				assert.True(t, at.Equal(ev.At))
			}
		})
	}
}
