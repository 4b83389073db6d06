package discord

import (
	"aixbot/clients/notifier"
	"aixbot/config"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordClient pushes run events to a Discord channel.
// Implements notifier.Notifier.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	dc := &DiscordClient{
		logger:    logger,
		channelID: cfg.Discord.ChannelID,
	}

	token := cfg.Discord.BotToken
	if token == "" || cfg.Discord.ChannelID == "" {
		logger.Info("discord not configured, run notifications disabled")
		return dc
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return dc
	}
	dc.session = session

	logger.Info("discord notifier initialized", zap.String("channelID", dc.channelID))
	return dc
}

// IsEnabled reports whether the client can actually send messages.
func (dc *DiscordClient) IsEnabled() bool {
	return dc.session != nil
}

// NotifyAccountResult sends a short per-account line. Only failures are
// reported individually; completions show up in the pass summary.
func (dc *DiscordClient) NotifyAccountResult(result notifier.AccountResult) error {
	if dc.session == nil || result.Completed {
		return nil
	}

	msg := fmt.Sprintf("⚠️ account `%s` did not complete (%s, ran %s)",
		result.AccountID, result.Reason, result.Duration.Round(1e9))
	if _, err := dc.session.ChannelMessageSend(dc.channelID, msg); err != nil {
		return fmt.Errorf("discord message send: %w", err)
	}
	return nil
}

// NotifyRunSummary sends an embed summarizing a batch pass.
func (dc *DiscordClient) NotifyRunSummary(summary notifier.RunSummary) error {
	if dc.session == nil {
		return nil
	}

	color := 0x2ECC71
	if summary.Failed > 0 {
		color = 0xE67E22
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Batch pass %d finished", summary.Pass),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Accounts", Value: fmt.Sprintf("%d", summary.Total), Inline: true},
			{Name: "Completed", Value: fmt.Sprintf("%d", summary.Completed), Inline: true},
			{Name: "Failed", Value: fmt.Sprintf("%d", summary.Failed), Inline: true},
			{Name: "Skipped", Value: fmt.Sprintf("%d", summary.Skipped), Inline: true},
			{Name: "Elapsed", Value: summary.Elapsed.Round(1e9).String(), Inline: true},
		},
	}

	if _, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed); err != nil {
		return fmt.Errorf("discord embed send: %w", err)
	}
	dc.logger.Info("sent discord run summary", zap.Int("pass", summary.Pass))
	return nil
}

// Close shuts down the underlying session.
func (dc *DiscordClient) Close() error {
	if dc.session == nil {
		return nil
	}
	return dc.session.Close()
}
