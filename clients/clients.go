package clients

import (
	"aixbot/clients/discord"
	"aixbot/clients/notifier"
	"aixbot/clients/profileapi"
	"aixbot/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	Profiles *profileapi.Client
	Discord  *discord.DiscordClient
	Notifier notifier.Notifier
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	discordClient := discord.NewDiscordClient(logger, cfg)

	var n notifier.Notifier = notifier.NoopNotifier{}
	if discordClient.IsEnabled() {
		n = discordClient
	}

	return &Clients{
		Logger:   logger,
		Profiles: profileapi.NewClient(logger, cfg),
		Discord:  discordClient,
		Notifier: n,
	}
}
