package domain

import (
	"fmt"
	"strings"
)

// greetingTrigger is the word that makes the bot greet back.
const greetingTrigger = "hello"

// GreetingResult represents the result of evaluating a message for a greeting.
type GreetingResult struct {
	ShouldRespond bool
	Response      string
}

// NewGreetingResult evaluates a message. The bot greets the author back when
// it was mentioned and the message says hello.
func NewGreetingResult(content string, botMentioned bool, authorMention string) *GreetingResult {
	if !botMentioned || !strings.Contains(strings.ToLower(content), greetingTrigger) {
		return &GreetingResult{}
	}

	return &GreetingResult{
		ShouldRespond: true,
		Response:      fmt.Sprintf("Hello, %s!", authorMention),
	}
}
