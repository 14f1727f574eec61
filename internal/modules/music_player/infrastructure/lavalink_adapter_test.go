package infrastructure

import (
	"errors"
	"testing"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
)

func TestLavalinkVolume(t *testing.T) {
	tests := []struct {
		gain float64
		want int
	}{
		{0, 0},
		{0.2, 20},
		{0.3, 30},
		{1, 100},
		{2, 200},
		{50, 1000},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := lavalinkVolume(tt.gain); got != tt.want {
			t.Errorf("lavalinkVolume(%v) = %d, want %d", tt.gain, got, tt.want)
		}
	}
}

func TestFirstTrack(t *testing.T) {
	track := lavalink.Track{Encoded: "abc"}

	tests := []struct {
		name    string
		result  *lavalink.LoadResult
		want    string
		wantErr bool
	}{
		{name: "single track", result: &lavalink.LoadResult{Data: track}, want: "abc"},
		{name: "search", result: &lavalink.LoadResult{Data: lavalink.Search{track}}, want: "abc"},
		{name: "empty search", result: &lavalink.LoadResult{Data: lavalink.Search{}}, wantErr: true},
		{name: "empty", result: &lavalink.LoadResult{Data: lavalink.Empty{}}, wantErr: true},
		{
			name:    "exception",
			result:  &lavalink.LoadResult{Data: lavalink.Exception{Message: "403"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := firstTrack(tt.result)
			if tt.wantErr {
				if !errors.Is(err, ErrTrackLoadFailed) {
					t.Errorf("expected ErrTrackLoadFailed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Encoded != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.Encoded)
			}
		})
	}
}

func TestVoiceEventBuffer(t *testing.T) {
	var b voiceEventBuffer
	channelID := snowflake.ID(5)

	if b.setVoiceState(&channelID, "session") {
		t.Fatal("expected buffer to wait for the voice server")
	}
	if !b.setVoiceServer("token", "endpoint") {
		t.Fatal("expected buffer to be ready")
	}

	gotChannel, session, token, endpoint := b.take()
	if gotChannel == nil || *gotChannel != channelID || session != "session" || token != "token" || endpoint != "endpoint" {
		t.Errorf("unexpected buffered data %v %q %q %q", gotChannel, session, token, endpoint)
	}
	if b.hasVoiceState || b.hasVoiceServer || b.channelID != nil || b.token != "" {
		t.Error("expected buffer to be reset")
	}

	// The buffer is reused for the next connection in the guild.
	if b.setVoiceServer("token2", "endpoint2") {
		t.Fatal("expected reset buffer to wait for the voice state")
	}
	if !b.setVoiceState(&channelID, "session2") {
		t.Fatal("expected buffer to be ready again")
	}
	if _, session, token, _ := b.take(); session != "session2" || token != "token2" {
		t.Errorf("unexpected buffered data after reuse %q %q", session, token)
	}
}

func TestPendingVoiceConnection(t *testing.T) {
	t.Run("join waits for both events", func(t *testing.T) {
		p := &pendingVoiceConnection{needServer: true, ready: make(chan struct{})}
		p.onEvent(true)
		select {
		case <-p.ready:
			t.Fatal("ready before voice server update")
		default:
		}
		p.onEvent(false)
		<-p.ready
		p.onEvent(false)
	})

	t.Run("move only needs the state", func(t *testing.T) {
		p := &pendingVoiceConnection{ready: make(chan struct{})}
		p.onEvent(true)
		<-p.ready
	})
}
