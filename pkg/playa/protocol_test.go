package playa

import "testing"

func TestValidateCommandEnvelope(t *testing.T) {
	cmd, err := NewCommand("playback.play", PlayBody{Source: "/tmp/clip.mkv"})
	if err != nil {
		t.Fatalf("new command: %v", err)
	}
	cmd.ID = "id"
	cmd.TS = 1
	cmd.From = "tester"
	if err := ValidateCommandEnvelope(cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCommandEnvelopeMissingFields(t *testing.T) {
	cmd := CommandEnvelope{}
	if err := ValidateCommandEnvelope(cmd); err == nil {
		t.Fatalf("expected error")
	}

	cmd, err := NewCommand("playback.list", EmptyBody{})
	if err != nil {
		t.Fatalf("new command: %v", err)
	}
	cmd.ID = "id"
	cmd.From = "tester"
	if err := ValidateCommandEnvelope(cmd); err == nil {
		t.Fatalf("expected ts error")
	}
}

func TestTopics(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{TopicPresence(BaseTopic, "den"), "playa/v1/node/den/presence"},
		{TopicState(BaseTopic, "den"), "playa/v1/node/den/state"},
		{TopicCommands(BaseTopic, "den"), "playa/v1/node/den/cmd"},
		{TopicEvents(BaseTopic, "den"), "playa/v1/node/den/evt"},
		{TopicReply(BaseTopic, "ctl-1"), "playa/v1/reply/ctl-1"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("topic mismatch: got %q want %q", tc.got, tc.want)
		}
	}
}
