package general

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/general/presentation"
)

func init() {
	bot.Register(&GeneralModule{})
}

// GeneralModule provides general commands like /ping.
type GeneralModule struct {
	pingHandler     *presentation.PingHandler
	greetingHandler *presentation.GreetingHandler
}

// Name returns the module name.
func (m *GeneralModule) Name() string {
	return "general"
}

// Commands returns the slash commands for this module.
func (m *GeneralModule) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Shows the bot's current latency",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *GeneralModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"ping": m.pingHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *GeneralModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		m.greetingHandler.HandleMessage,
	}
}

// Init initializes the module.
func (m *GeneralModule) Init(deps bot.ModuleDependencies) error {
	m.pingHandler = presentation.NewPingHandler(deps.Session.HeartbeatLatency)
	m.greetingHandler = presentation.NewGreetingHandler()
	return nil
}

// Shutdown cleans up module resources.
func (m *GeneralModule) Shutdown() error {
	return nil
}
