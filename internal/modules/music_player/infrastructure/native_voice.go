package infrastructure

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"layeh.com/gopus"
)

const (
	pcmChannels   = 2
	pcmSampleRate = 48000
	pcmFrameSize  = 960 // 20ms at 48kHz
	maxOpusBytes  = pcmFrameSize * pcmChannels * 2
)

// ErrVoiceNotConnected is returned when playing in a guild without a voice connection.
var ErrVoiceNotConnected = errors.New("no voice connection for guild")

// NativeVoiceConfig configures the in-process voice backend.
type NativeVoiceConfig struct {
	FFmpegPath string
}

// NativeVoice sends audio over discordgo's own voice connection. ffmpeg
// decodes the stream to PCM, gain is applied per frame and gopus encodes
// the result.
type NativeVoice struct {
	session    *discordgo.Session
	ffmpegPath string

	mu      sync.Mutex
	conns   map[snowflake.ID]*discordgo.VoiceConnection
	streams map[snowflake.ID]*nativeStream
}

// NewNativeVoice creates a new NativeVoice.
func NewNativeVoice(session *discordgo.Session, config NativeVoiceConfig) *NativeVoice {
	path := config.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	return &NativeVoice{
		session:    session,
		ffmpegPath: path,
		conns:      make(map[snowflake.ID]*discordgo.VoiceConnection),
		streams:    make(map[snowflake.ID]*nativeStream),
	}
}

// JoinChannel connects to a voice channel.
func (n *NativeVoice) JoinChannel(_ context.Context, guildID, channelID snowflake.ID) error {
	vc, err := n.session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	n.mu.Lock()
	n.conns[guildID] = vc
	n.mu.Unlock()
	return nil
}

// MoveChannel switches the existing connection to another channel.
func (n *NativeVoice) MoveChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	vc := n.connection(guildID)
	if vc == nil {
		return n.JoinChannel(ctx, guildID, channelID)
	}
	if err := vc.ChangeChannel(channelID.String(), false, true); err != nil {
		return fmt.Errorf("failed to move voice channel: %w", err)
	}
	return nil
}

// LeaveChannel stops playback and disconnects.
func (n *NativeVoice) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	n.mu.Lock()
	vc := n.conns[guildID]
	delete(n.conns, guildID)
	stream := n.streams[guildID]
	n.mu.Unlock()

	if stream != nil {
		stream.cancel()
	}
	if vc == nil {
		// The gateway may still consider us connected after a restart.
		return n.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	}
	if err := vc.Disconnect(); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play starts decoding req.StreamURL. Any stream already running in the
// guild is cancelled first.
func (n *NativeVoice) Play(_ context.Context, guildID snowflake.ID, req ports.PlayRequest) error {
	vc := n.connection(guildID)
	if vc == nil {
		return ErrVoiceNotConnected
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, n.ffmpegPath, ffmpegArgs(req.StreamURL)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	stream := newNativeStream(cancel, req.Volume, req.OnFinished)

	n.mu.Lock()
	previous := n.streams[guildID]
	n.streams[guildID] = stream
	n.mu.Unlock()
	if previous != nil {
		previous.cancel()
	}

	go func() {
		frames, err := finishStream(ctx, cancel,
			func(ctx context.Context) (int, error) { return stream.pump(ctx, stdout, vc) },
			cmd.Wait,
			stderr.String,
		)

		n.mu.Lock()
		if n.streams[guildID] == stream {
			delete(n.streams, guildID)
		}
		n.mu.Unlock()

		if err != nil {
			slog.Warn("native stream failed", "guild", guildID, "frames", frames, "error", err)
		}
		if stream.onFinished != nil {
			stream.onFinished(err)
		}
	}()

	return nil
}

// Stop cancels the running stream. Its finish callback fires with a nil error.
func (n *NativeVoice) Stop(_ context.Context, guildID snowflake.ID) error {
	if stream := n.stream(guildID); stream != nil {
		stream.cancel()
	}
	return nil
}

// Pause holds frames back until Resume.
func (n *NativeVoice) Pause(_ context.Context, guildID snowflake.ID) error {
	if stream := n.stream(guildID); stream != nil {
		stream.setPaused(true)
	}
	return nil
}

// Resume releases a paused stream.
func (n *NativeVoice) Resume(_ context.Context, guildID snowflake.ID) error {
	if stream := n.stream(guildID); stream != nil {
		stream.setPaused(false)
	}
	return nil
}

// SetVolume changes the gain applied to the following frames.
func (n *NativeVoice) SetVolume(_ context.Context, guildID snowflake.ID, volume float64) error {
	if stream := n.stream(guildID); stream != nil {
		stream.setGain(volume)
	}
	return nil
}

func (n *NativeVoice) connection(guildID snowflake.ID) *discordgo.VoiceConnection {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[guildID]
}

func (n *NativeVoice) stream(guildID snowflake.ID) *nativeStream {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.streams[guildID]
}

func ffmpegArgs(url string) []string {
	return []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", url,
		"-f", "s16le",
		"-ar", strconv.Itoa(pcmSampleRate),
		"-ac", strconv.Itoa(pcmChannels),
		"-loglevel", "warning",
		"pipe:1",
	}
}

// finishStream pumps until the stream ends, then kills ffmpeg before
// waiting on it. A pump that bails out early leaves ffmpeg blocked on a full
// stdout pipe, so Wait would never return otherwise.
func finishStream(
	ctx context.Context,
	cancel context.CancelFunc,
	pump func(context.Context) (int, error),
	wait func() error,
	stderr func() string,
) (int, error) {
	frames, err := pump(ctx)
	stopped := ctx.Err() != nil
	cancel()
	waitErr := wait()
	return frames, streamResult(stopped, frames, err, waitErr, stderr())
}

// streamResult decides what a finished stream reports. A stopped stream
// was stopped on purpose; a stream that produced audio and then ran out
// ended normally.
func streamResult(stopped bool, frames int, pumpErr, waitErr error, stderr string) error {
	if stopped {
		return nil
	}
	if pumpErr != nil && !errors.Is(pumpErr, io.EOF) && !errors.Is(pumpErr, io.ErrUnexpectedEOF) {
		return pumpErr
	}
	if frames > 0 {
		return nil
	}
	msg := lastLine(stderr)
	if waitErr != nil {
		if msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", waitErr, msg)
		}
		return fmt.Errorf("ffmpeg: %w", waitErr)
	}
	return errors.New("ffmpeg produced no audio")
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

type nativeStream struct {
	cancel     context.CancelFunc
	onFinished func(error)
	gain       atomic.Uint64

	mu     sync.Mutex
	paused bool
	wake   chan struct{}
}

func newNativeStream(cancel context.CancelFunc, gain float64, onFinished func(error)) *nativeStream {
	s := &nativeStream{
		cancel:     cancel,
		onFinished: onFinished,
		wake:       make(chan struct{}),
	}
	s.setGain(gain)
	return s
}

func (s *nativeStream) setGain(gain float64) {
	s.gain.Store(math.Float64bits(gain))
}

func (s *nativeStream) currentGain() float64 {
	return math.Float64frombits(s.gain.Load())
}

func (s *nativeStream) setPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused == paused {
		return
	}
	s.paused = paused
	if paused {
		s.wake = make(chan struct{})
	} else {
		close(s.wake)
	}
}

func (s *nativeStream) waitWhilePaused(ctx context.Context) error {
	s.mu.Lock()
	paused, wake := s.paused, s.wake
	s.mu.Unlock()

	if !paused {
		return nil
	}
	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pump reads PCM frames from r and sends them as opus until r is exhausted
// or ctx is cancelled. It returns the number of frames sent.
func (s *nativeStream) pump(ctx context.Context, r io.Reader, vc *discordgo.VoiceConnection) (int, error) {
	encoder, err := gopus.NewEncoder(pcmSampleRate, pcmChannels, gopus.Audio)
	if err != nil {
		return 0, fmt.Errorf("encoder error: %w", err)
	}

	if err := vc.Speaking(true); err != nil {
		slog.Debug("failed to set speaking state", "error", err)
	}
	defer func() {
		if err := vc.Speaking(false); err != nil {
			slog.Debug("failed to clear speaking state", "error", err)
		}
	}()

	pcmBuf := make([]byte, pcmFrameSize*pcmChannels*2)
	samples := make([]int16, pcmFrameSize*pcmChannels)
	frames := 0

	for {
		if err := s.waitWhilePaused(ctx); err != nil {
			return frames, err
		}

		if _, err := io.ReadFull(r, pcmBuf); err != nil {
			return frames, err
		}
		decodePCM(pcmBuf, samples)
		applyGain(samples, s.currentGain())

		opus, err := encoder.Encode(samples, pcmFrameSize, maxOpusBytes)
		if err != nil {
			return frames, fmt.Errorf("encode error: %w", err)
		}

		select {
		case vc.OpusSend <- opus:
			frames++
		case <-ctx.Done():
			return frames, ctx.Err()
		}
	}
}

func decodePCM(buf []byte, samples []int16) {
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
}

// applyGain scales samples in place, clamping to the int16 range.
func applyGain(samples []int16, gain float64) {
	if gain == 1 {
		return
	}
	for i, s := range samples {
		v := math.Round(float64(s) * gain)
		samples[i] = int16(max(math.MinInt16, min(math.MaxInt16, v)))
	}
}

// Ensure NativeVoice implements port interfaces.
var (
	_ ports.AudioPlayer     = (*NativeVoice)(nil)
	_ ports.VoiceConnection = (*NativeVoice)(nil)
)
