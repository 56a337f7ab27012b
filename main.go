package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/TheTipo01/suggestionBot/internal/metrics"
	"github.com/TheTipo01/suggestionBot/internal/sticky"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/TheTipo01/suggestionBot/internal/suggestion"
	"github.com/bwmarrin/discordgo"
	"github.com/bwmarrin/lit"
	"github.com/joho/godotenv"
	"github.com/kkyr/fig"
	"github.com/natefinch/lumberjack"
)

var (
	// Parsed configuration
	cfg Config
	// Persistent store of the guild records
	st store.Store
	// Sticky reminder manager
	reminders *sticky.Manager
	// Suggestion registry and moderation workflow
	suggestions *suggestion.Service
)

func init() {
	lit.LogLevel = lit.LogError

	// Environment variables from a .env file, if there is one
	_ = godotenv.Load()

	err := fig.Load(&cfg, fig.File("config.yml"), fig.Dirs(".", "./data"), fig.UseEnv("SUGGESTBOT"))
	if err != nil {
		lit.Error(err.Error())
		return
	}

	// Set lit.LogLevel to the given value
	switch strings.ToLower(cfg.LogLevel) {
	case "logwarning", "warning":
		lit.LogLevel = lit.LogWarning
	case "loginformational", "informational":
		lit.LogLevel = lit.LogInformational
	case "logdebug", "debug":
		lit.LogLevel = lit.LogDebug
	}

	// Also write to a rotated file if asked to
	if cfg.LogFile != "" {
		lit.Writer = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	// Open the store
	st, err = openStore(cfg)
	if err != nil {
		lit.Error("Error opening store, %s", err)
		return
	}
}

func main() {
	if st == nil {
		lit.Error("No store available, check config.yml")
		return
	}

	// Create a new Discord session using the provided bot token.
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		lit.Error("error creating Discord session, %s", err)
		return
	}

	platform := &discordPlatform{s: dg}
	reminders = sticky.New(platform, st, sticky.WithWindow(cfg.StickyWindow), sticky.WithText(cfg.StickyText))
	suggestions = suggestion.NewService(st, platform, reminders, suggestion.WithPinApproved(cfg.PinApproved))

	// Add events handler
	dg.AddHandler(messageCreate)
	dg.AddHandler(ready)

	// Add commands handler
	dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		// Ignores interactions from DM
		if i.GuildID == "" {
			return
		}

		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			if h, ok := commandHandlers[i.ApplicationCommandData().Name]; ok {
				h(s, i)
			}
		case discordgo.InteractionMessageComponent:
			handleComponent(s, i)
		}
	})

	// Initialize intents that we use
	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuildMessages | discordgo.IntentsGuilds)

	// Open a websocket connection to Discord and begin listening.
	err = dg.Open()
	if err != nil {
		lit.Error("error opening connection, %s", err)
		return
	}

	cron := loadScheduler(reminders, cfg.PruneInterval)
	srv := metrics.Serve(cfg.MetricsAddress)

	// Wait here until CTRL-C or other term signal is received.
	lit.Info("suggestionBot is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Cleanly close down the Discord session.
	_ = dg.Close()

	cron.Stop()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(ctx)
		cancel()
	}

	// And the store
	_ = st.Close()
}

// Keeps the reminder at the bottom of the suggestions channel
func messageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	// Avoid responding to bot messages, including our own suggestions and reminders
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := reminders.Activity(ctx, m.GuildID, m.ChannelID); err != nil {
		lit.Error("Error updating reminder in guild %s, %s", m.GuildID, err)
	}
}

func ready(s *discordgo.Session, _ *discordgo.Ready) {
	// Set the playing status.
	err := s.UpdateGameStatus(0, "/suggest")
	if err != nil {
		lit.Error("Can't set status, %s", err)
	}

	// Checks for changed commands and (re-)registers them
	cmds, err := s.ApplicationCommands(s.State.User.ID, "")
	if err != nil {
		lit.Error("Can't get registered commands, %s", err)
		return
	}

	for _, l := range commands {
		found := false

		for _, o := range cmds {
			// We compare every online command with the ones locally stored, to find if a command with the same name exists
			if l.Name == o.Name {
				// If the options of the command are not equal, we re-register it
				if !isCommandEqual(l, o) {
					lit.Info("Registering command `%s`", l.Name)

					_, err = s.ApplicationCommandCreate(s.State.User.ID, "", l)
					if err != nil {
						lit.Error("Cannot create '%s' command: %s", l.Name, err)
					}
				}

				found = true
				break
			}
		}

		// If we didn't found a match for the locally stored command, it means the command is new. We register it
		if !found {
			lit.Info("Registering new command `%s`", l.Name)

			_, err = s.ApplicationCommandCreate(s.State.User.ID, "", l)
			if err != nil {
				lit.Error("Cannot create '%s' command: %s", l.Name, err)
			}
		}
	}
}
