package application

import "github.com/sglre6355/melodybot/internal/modules/general/domain"

// GreetingInteractor handles the greeting use case.
type GreetingInteractor struct{}

// NewGreetingInteractor creates a new GreetingInteractor.
func NewGreetingInteractor() *GreetingInteractor {
	return &GreetingInteractor{}
}

// Execute evaluates the message and returns the greeting result.
func (g *GreetingInteractor) Execute(content string, botMentioned bool, authorMention string) *domain.GreetingResult {
	return domain.NewGreetingResult(content, botMentioned, authorMention)
}
