package music_player

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
	"github.com/sglre6355/melodybot/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/melodybot/internal/modules/music_player/presentation/discord"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.ComponentModule    = (*MusicPlayerModule)(nil)
)

// audioBackend is a voice backend that both joins channels and plays audio.
type audioBackend interface {
	ports.VoiceConnection
	ports.AudioPlayer
}

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers

	lavalinkAdapter *infrastructure.LavalinkAdapter
	controller      *usecases.QueueController
	selections      *usecases.SelectionService
	volumes         ports.VolumeStore

	eventBus            *infrastructure.ChannelEventBus
	notificationHandler *application.NotificationEventHandler
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":   m.commandHandlers.HandleJoin,
		"leave":  m.commandHandlers.HandleLeave,
		"play":   m.commandHandlers.HandlePlay,
		"search": m.commandHandlers.HandleSearch,
		"stop":   m.commandHandlers.HandleStop,
		"pause":  m.commandHandlers.HandlePause,
		"resume": m.commandHandlers.HandleResume,
		"skip":   m.commandHandlers.HandleSkip,
		"queue":  m.commandHandlers.HandleQueue,
		"volume": m.commandHandlers.HandleVolume,
	}
}

// ComponentHandlers returns the message component handlers for this module.
func (m *MusicPlayerModule) ComponentHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		discord.SelectCustomIDPrefix: m.commandHandlers.HandleSelect,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handleInteractionCreate(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State == nil || deps.Session.State.User == nil {
		return fmt.Errorf("music_player module requires a connected session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return err
	}

	ctx := context.Background()

	backend, err := m.newBackend(ctx, deps.Session)
	if err != nil {
		return err
	}

	volumes, err := m.newVolumeStore(ctx)
	if err != nil {
		return err
	}
	m.volumes = volumes

	defaultVolume, err := domain.NewVolume(m.config.DefaultBaseVolume, domain.DefaultMultiplierPercent)
	if err != nil {
		return err
	}

	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	resolver := infrastructure.NewYtdlpResolver(infrastructure.YtdlpConfig{
		Path:          m.config.YtdlpPath,
		Format:        m.config.YtdlpFormat,
		RatePerSecond: m.config.ResolveRatePerSecond,
		Burst:         m.config.ResolveBurst,
	})
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	userInfo := infrastructure.NewDiscordUserInfoProvider(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session)

	m.controller = usecases.NewQueueController(
		resolver,
		backend,
		backend,
		voiceState,
		m.volumes,
		m.eventBus,
		usecases.ControllerConfig{
			AutoDisconnectDelay: m.config.AutoDisconnectDelay,
			DefaultVolume:       defaultVolume,
		},
	)

	m.notificationHandler = application.NewNotificationEventHandler(m.eventBus, notifier, userInfo)
	if err := m.notificationHandler.Start(); err != nil {
		return err
	}

	youtube := infrastructure.NewYouTubeSearcher()
	search := usecases.NewSearchService(
		map[domain.SearchSource]ports.TrackSearcher{
			domain.SourceSoundCloud:   resolver.Searcher(domain.SourceSoundCloud),
			domain.SourceYouTube:      youtube,
			domain.SourceYouTubeMusic: infrastructure.NewYouTubeMusicSearcher(),
		},
		m.config.defaultSource(),
		m.config.SearchLimit,
	)
	m.selections = usecases.NewSelectionService(m.config.SelectionTimeout)

	m.commandHandlers = discord.NewCommandHandlers(
		m.controller,
		search,
		m.selections,
		m.config.defaultSource(),
	)
	m.autocomplete = discord.NewAutocompleteHandler(m.controller, youtube)
	m.eventHandlers = discord.NewEventHandlers(botID, m.controller)

	slog.Info("initialized music_player module",
		"voice_backend", m.config.VoiceBackend,
		"volume_store", m.config.VolumeStore,
		"default_source", string(m.config.defaultSource()),
	)

	return nil
}

func (m *MusicPlayerModule) newBackend(ctx context.Context, session *discordgo.Session) (audioBackend, error) {
	if m.config.VoiceBackend == BackendNative {
		return infrastructure.NewNativeVoice(session, infrastructure.NativeVoiceConfig{
			FFmpegPath: m.config.FFmpegPath,
		}), nil
	}

	adapter, err := infrastructure.NewLavalinkAdapter(ctx, session, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
		Secure:   m.config.LavalinkSecure,
	})
	if err != nil {
		return nil, err
	}
	m.lavalinkAdapter = adapter
	return adapter, nil
}

func (m *MusicPlayerModule) newVolumeStore(ctx context.Context) (ports.VolumeStore, error) {
	switch m.config.VolumeStore {
	case StoreSQLite:
		store, err := infrastructure.NewSQLiteVolumeStore(ctx, m.config.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreRedis:
		store, err := infrastructure.NewRedisVolumeStore(ctx, infrastructure.RedisConfig{
			Address:  m.config.RedisAddress,
			Password: m.config.RedisPassword,
			DB:       m.config.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return infrastructure.NewMemoryVolumeStore(), nil
	}
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	if m.controller != nil {
		m.controller.Close()
	}
	if m.selections != nil {
		m.selections.Close()
	}
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}
	if m.volumes != nil {
		if err := m.volumes.Close(); err != nil {
			return fmt.Errorf("failed to close volume store: %w", err)
		}
	}
	return nil
}

// Event handlers.

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

func (m *MusicPlayerModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}

func (m *MusicPlayerModule) handleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete || m.autocomplete == nil {
		return
	}

	data := i.ApplicationCommandData()
	r := bot.NewDiscordResponder(s, i.Interaction)

	var err error
	switch data.Name {
	case "play":
		err = m.autocomplete.HandlePlay(s, i, r)
	case "queue":
		if len(data.Options) > 0 && data.Options[0].Name == "remove" {
			err = m.autocomplete.HandleQueueRemove(s, i, r)
		}
	}
	if err != nil {
		slog.Warn("failed to answer autocomplete", "command", data.Name, "error", err)
	}
}
