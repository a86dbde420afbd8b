// Package notify отправляет текстовые уведомления в общий чат:
// об оплате долга, напоминания должникам и итоги месяца.
// Без Telegram сообщения просто пишутся в лог.
package notify

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/brusliste/internal/config"
)

// Notifier — куда уходят уведомления.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// sender — часть telego.Bot, которой мы пользуемся.
type sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Telegram шлёт сообщения в один чат.
type Telegram struct {
	bot    sender
	chatID int64
}

// NewTelegram создаёт клиента Bot API и проверяет токен.
func NewTelegram(ctx context.Context, token string, chatID int64) (*Telegram, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}

	me, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Telegram: %w", err)
	}

	log.WithFields(log.Fields{
		"bot":     me.Username,
		"chat_id": chatID,
	}).Info("Telegram-уведомления включены")

	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Send отправляет текст в чат.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if _, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(t.chatID), text)); err != nil {
		return fmt.Errorf("ошибка отправки в Telegram: %w", err)
	}
	return nil
}

// Log пишет уведомления в лог вместо чата.
type Log struct{}

func (Log) Send(ctx context.Context, text string) error {
	log.WithField("component", "notify").Info(text)
	return nil
}

// New выбирает реализацию по конфигу.
// Если Telegram включён, но недоступен, сервис всё равно стартует с Log.
func New(ctx context.Context, cfg *config.Config) Notifier {
	if !cfg.FeatureTelegramEnabled {
		return Log{}
	}

	tg, err := NewTelegram(ctx, cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.WithError(err).Warn("Telegram недоступен, уведомления пойдут в лог")
		return Log{}
	}
	return tg
}
