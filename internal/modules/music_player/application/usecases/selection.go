package usecases

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type selectionPrompt struct {
	guildID     snowflake.ID
	channelID   snowflake.ID
	requesterID snowflake.ID
	candidates  []SearchCandidate
	timer       *time.Timer
}

// SelectionService tracks open search result pickers. Each prompt expires
// on its own timer.
type SelectionService struct {
	timeout time.Duration
	seq     atomic.Uint64

	mu      sync.Mutex
	prompts map[string]*selectionPrompt
}

// NewSelectionService creates a new SelectionService.
func NewSelectionService(timeout time.Duration) *SelectionService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &SelectionService{
		timeout: timeout,
		prompts: make(map[string]*selectionPrompt),
	}
}

// Timeout returns how long prompts stay open.
func (s *SelectionService) Timeout() time.Duration {
	return s.timeout
}

// Open registers a prompt and returns its id.
func (s *SelectionService) Open(input OpenSelectionInput) (string, error) {
	if len(input.Candidates) == 0 {
		return "", ErrNoResults
	}

	id := fmt.Sprintf("%s-%d", snowflake.New(time.Now()), s.seq.Add(1))
	prompt := &selectionPrompt{
		guildID:     input.GuildID,
		channelID:   input.ChannelID,
		requesterID: input.RequesterID,
		candidates:  append([]SearchCandidate(nil), input.Candidates...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts[id] = prompt
	prompt.timer = time.AfterFunc(s.timeout, func() {
		if s.take(id) != nil && input.OnExpire != nil {
			input.OnExpire()
		}
	})
	return id, nil
}

// Pick resolves a prompt. Only the requester may pick; anyone else gets
// ErrNotRequester and the prompt stays open.
func (s *SelectionService) Pick(input PickInput) (*PickOutput, error) {
	s.mu.Lock()
	prompt, ok := s.prompts[input.PromptID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSelectionExpired
	}
	if prompt.requesterID != input.UserID {
		s.mu.Unlock()
		return nil, ErrNotRequester
	}
	if input.Index < 0 || input.Index >= len(prompt.candidates) {
		s.mu.Unlock()
		return nil, ErrInvalidIndex
	}
	delete(s.prompts, input.PromptID)
	s.mu.Unlock()

	prompt.timer.Stop()
	return &PickOutput{
		Candidate: prompt.candidates[input.Index],
		GuildID:   prompt.guildID,
		ChannelID: prompt.channelID,
	}, nil
}

// Cancel closes a prompt without firing its expiry callback.
func (s *SelectionService) Cancel(promptID string) {
	if p := s.take(promptID); p != nil {
		p.timer.Stop()
	}
}

// Close cancels every open prompt.
func (s *SelectionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.prompts {
		p.timer.Stop()
		delete(s.prompts, id)
	}
}

// OpenCount returns how many prompts are currently open.
func (s *SelectionService) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *SelectionService) take(id string) *selectionPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prompts[id]
	if !ok {
		return nil
	}
	delete(s.prompts, id)
	return p
}
