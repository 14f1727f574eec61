package presentation

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/general/application"
)

// PingHandler handles the /ping command.
type PingHandler struct {
	interactor *application.PingInteractor
}

// NewPingHandler creates a new PingHandler.
func NewPingHandler(latency application.LatencySource) *PingHandler {
	return &PingHandler{
		interactor: application.NewPingInteractor(latency),
	}
}

// Handle processes the ping command and sends the response.
func (h *PingHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	result := h.interactor.Execute()

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: result.Message(),
		},
	})
}

// GreetingHandler greets users who mention the bot with a hello.
type GreetingHandler struct {
	interactor *application.GreetingInteractor
}

// NewGreetingHandler creates a new GreetingHandler.
func NewGreetingHandler() *GreetingHandler {
	return &GreetingHandler{
		interactor: application.NewGreetingInteractor(),
	}
}

// HandleMessage is the discordgo event handler for MessageCreate events.
func (h *GreetingHandler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || s.State == nil || s.State.User == nil {
		return
	}

	reply, ok := h.reply(s.State.User.ID, m.Message)
	if !ok {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		slog.Error("failed to send message", "channel", m.ChannelID, "error", err)
	}
}

// reply returns the greeting for m, if any.
func (h *GreetingHandler) reply(botID string, m *discordgo.Message) (string, bool) {
	// Ignore messages from the bot itself
	if m.Author == nil || m.Author.ID == botID {
		return "", false
	}

	mentioned := false
	for _, user := range m.Mentions {
		if user != nil && user.ID == botID {
			mentioned = true
			break
		}
	}

	result := h.interactor.Execute(m.Content, mentioned, m.Author.Mention())
	return result.Response, result.ShouldRespond
}
