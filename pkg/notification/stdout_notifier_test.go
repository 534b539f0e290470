package notification

import (
	"bytes"
	"context"
	"testing"
)

func TestStdoutNotifier_Send(t *testing.T) {
	tests := []struct {
		name         string
		notification Notification
		wantOutput   string
	}{
		{
			name: "basic notification",
			notification: Notification{
				Title:   "IRC",
				Message: "#chan: <bob> hi",
			},
			wantOutput: "[NOTIFICATION] IRC: #chan: <bob> hi\n",
		},
		{
			name: "notification with reply link",
			notification: Notification{
				Title:    "IRC",
				Message:  "alice: ping",
				URL:      "https://reply.example/reply?network=net",
				URLTitle: "Reply",
			},
			wantOutput: "[NOTIFICATION] IRC: alice: ping (Reply: https://reply.example/reply?network=net)\n",
		},
		{
			name:         "notification with empty fields",
			notification: Notification{},
			wantOutput:   "[NOTIFICATION] : \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			notifier := NewStdoutNotifier(&buf)

			if err := notifier.Send(context.Background(), tt.notification); err != nil {
				t.Fatalf("Send() returned error: %v", err)
			}

			if got := buf.String(); got != tt.wantOutput {
				t.Errorf("output = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}
