package mqtt

import (
	"errors"
	"testing"
)

// Connection-dependent behaviour (connect, reconnect, publish round-trips)
// is covered by the integration tests behind the integration build tag.
// These tests cover the pure parts: validation and topic construction.

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			payload: []byte("{}"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid qos",
			topic:   Topics{}.ShowEvent("show-abc", "cue.executed"),
			payload: []byte("{}"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "not connected",
			topic:   Topics{}.ShowEvent("show-abc", "cue.executed"),
			payload: []byte("{}"),
			qos:     1,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if err == nil {
				t.Fatal("Publish() expected error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe(Topics{}.AllNoteInboxes(), 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() bad qos error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe(Topics{}.AllNoteInboxes(), 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe(Topics{}.AllNoteInboxes(), 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name  string
		build func() string
		want  string
	}{
		{
			name:  "ShowEvent",
			build: func() string { return Topics{}.ShowEvent("show-a1b2c3d4", "cue.executed") },
			want:  "showcall/event/show-a1b2c3d4/cue.executed",
		},
		{
			name:  "ShowLive",
			build: func() string { return Topics{}.ShowLive("show-a1b2c3d4") },
			want:  "showcall/live/show-a1b2c3d4",
		},
		{
			name:  "NoteInbox",
			build: func() string { return Topics{}.NoteInbox("show-a1b2c3d4") },
			want:  "showcall/note/show-a1b2c3d4",
		},
		{
			name:  "SystemStatus",
			build: func() string { return Topics{}.SystemStatus() },
			want:  "showcall/system/status",
		},
		{
			name:  "SystemShutdown",
			build: func() string { return Topics{}.SystemShutdown() },
			want:  "showcall/system/shutdown",
		},
		{
			name:  "AllShowEvents",
			build: func() string { return Topics{}.AllShowEvents("show-a1b2c3d4") },
			want:  "showcall/event/show-a1b2c3d4/+",
		},
		{
			name:  "AllEvents",
			build: func() string { return Topics{}.AllEvents() },
			want:  "showcall/event/+/+",
		},
		{
			name:  "AllNoteInboxes",
			build: func() string { return Topics{}.AllNoteInboxes() },
			want:  "showcall/note/+",
		},
		{
			name:  "AllTopics",
			build: func() string { return Topics{}.AllTopics() },
			want:  "showcall/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(); got != tt.want {
				t.Errorf("topic = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShowIDFromNoteTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"showcall/note/show-a1b2c3d4", "show-a1b2c3d4"},
		{"showcall/note/", ""},
		{"showcall/event/show-a1b2c3d4/cue.executed", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ShowIDFromNoteTopic(tt.topic); got != tt.want {
			t.Errorf("ShowIDFromNoteTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}
