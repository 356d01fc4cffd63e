package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender - реализация domain.Notifier поверх Telegram API
type Sender struct {
	bot *tgbotapi.BotAPI
}

func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

func (s *Sender) Notify(subscriberID int64, text string) error {
	msg := tgbotapi.NewMessage(subscriberID, text)
	_, err := s.bot.Send(msg)
	return err
}
