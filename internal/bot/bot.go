package bot

import (
	"context"
	"time"

	"herald-bot/internal/analytics"
	"herald-bot/internal/config"
	"herald-bot/internal/engine"
	"herald-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	engine    *engine.Engine
	analytics *analytics.Service
	session   *discordgo.Session
	sweepStop chan struct{}
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, commandEngine *engine.Engine, analyticsService *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	return &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		engine:    commandEngine,
		analytics: analyticsService,
		session:   session,
		sweepStop: make(chan struct{}),
	}, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	b.startCooldownSweep()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	close(b.sweepStop)
	if b.session != nil {
		_ = b.session.Close()
	}
}

// Session exposes the underlying connection for callers that push slash
// command updates after out-of-band registry changes.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// startCooldownSweep deletes expired cooldown rows on a timer so the table
// does not grow without bound. Active checks never rely on the sweep.
func (b *Bot) startCooldownSweep() {
	interval := time.Duration(b.cfg.CooldownSweepMinutes) * time.Minute
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := b.engine.CleanupExpiredCooldowns(context.Background())
				if err != nil {
					b.logger.Warn("cooldown sweep failed", zap.Error(err))
					continue
				}
				if deleted > 0 {
					b.logger.Debug("cooldown sweep", zap.Int64("deleted", deleted))
				}
			case <-b.sweepStop:
				return
			}
		}
	}()
}
