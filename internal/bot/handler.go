package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

// Префиксы callback-данных (чтобы не опечататься)
const (
	cbPair      = "pair_"
	cbThreshold = "threshold_"
	cbSubscribe = "sub_"
	cbUnsub     = "unsub_"
)

// Пороги, предлагаемые в меню
var thresholdChoices = []string{"0.5", "1", "2"}

// Handler - фронтенд бота: меню выбора пары, порога и направления.
// Вся доменная логика живет за реестром; хендлер только превращает
// нажатия кнопок в вызовы Create/Deactivate.
type Handler struct {
	bot      *tgbotapi.BotAPI
	registry domain.SubscriptionRegistry
	store    domain.PriceStore
	tracked  domain.PairSet
	adminID  int64
	logger   *slog.Logger
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	registry domain.SubscriptionRegistry,
	store domain.PriceStore,
	tracked domain.PairSet,
	adminID int64,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bot:      bot,
		registry: registry,
		store:    store,
		tracked:  tracked,
		adminID:  adminID,
		logger:   logger.With(slog.String("component", "bot")),
	}
}

func (h *Handler) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				go h.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				go h.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		h.send(msg.Chat.ID, "Используйте /start для выбора пары и /list для своих подписок.")
		return
	}

	switch msg.Command() {
	case "start":
		h.cmdStart(msg)
	case "list":
		h.cmdList(ctx, msg)
	case "stats":
		// Служебная команда, для всех остальных ее не существует
		if msg.From != nil && msg.From.ID == h.adminID {
			h.cmdStats(ctx, msg)
			return
		}
		h.send(msg.Chat.ID, "Неизвестная команда. Доступны /start и /list.")
	default:
		h.send(msg.Chat.ID, "Неизвестная команда. Доступны /start и /list.")
	}
}

// --- Commands ---

func (h *Handler) cmdStart(msg *tgbotapi.Message) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, pair := range h.tracked.Pairs() {
		btn := tgbotapi.NewInlineKeyboardButtonData(domain.DisplayPair(pair), cbPair+pair)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{btn})
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, "Выбери валютную пару:")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.bot.Send(reply)
}

func (h *Handler) cmdList(ctx context.Context, msg *tgbotapi.Message) {
	subs, err := h.registry.ListActiveForSubscriber(ctx, msg.Chat.ID)
	if err != nil {
		h.logger.Error("Failed to list subscriptions", "err", err)
		h.send(msg.Chat.ID, "⚠️ Не удалось получить список подписок.")
		return
	}

	if len(subs) == 0 {
		h.send(msg.Chat.ID, "📭 У вас нет активных подписок.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 Ваши подписки (%d):\n\n", len(subs)))

	for _, s := range subs {
		arrow := "📈"
		if s.Direction == domain.DirectionDown {
			arrow = "📉"
		}
		baseline := s.BaselineRate.String()
		if !s.Armed() {
			baseline = "ждет первого курса"
		}
		sb.WriteString(fmt.Sprintf("%s %s на %s%% (база: %s)\n",
			arrow, domain.DisplayPair(s.Pair), s.ThresholdPercent.String(), baseline))

		btn := tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("❌ %s %s %s%%", domain.DisplayPair(s.Pair), arrow, s.ThresholdPercent.String()),
			cbUnsub+s.ID.String(),
		)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{btn})
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, sb.String())
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.bot.Send(reply)
}

func (h *Handler) cmdStats(ctx context.Context, msg *tgbotapi.Message) {
	h.send(msg.Chat.ID, formatRatesReport(ctx, h.store, h.tracked))
}

// formatRatesReport собирает сводку последних известных курсов по всем
// отслеживаемым парам. Пары без курса в кэше помечаются отдельно.
func formatRatesReport(ctx context.Context, store domain.PriceStore, tracked domain.PairSet) string {
	var sb strings.Builder
	sb.WriteString("📊 Последние известные курсы:\n")
	for _, pair := range tracked.Pairs() {
		point, err := store.Get(ctx, pair)
		if err != nil {
			sb.WriteString(fmt.Sprintf("%s: нет данных\n", domain.DisplayPair(pair)))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", domain.DisplayPair(pair), point.Rate.String()))
	}
	return sb.String()
}

// --- Callbacks ---

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	h.bot.Request(tgbotapi.NewCallback(cb.ID, ""))

	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, cbPair):
		h.onPairChosen(ctx, chatID, strings.TrimPrefix(data, cbPair))
	case strings.HasPrefix(data, cbThreshold):
		h.onThresholdChosen(chatID, strings.TrimPrefix(data, cbThreshold))
	case strings.HasPrefix(data, cbSubscribe):
		h.onSubscribe(ctx, chatID, strings.TrimPrefix(data, cbSubscribe))
	case strings.HasPrefix(data, cbUnsub):
		h.onUnsubscribe(ctx, chatID, strings.TrimPrefix(data, cbUnsub))
	default:
		h.logger.Warn("Unknown callback", slog.String("data", data))
	}
}

// Шаг 1: пара выбрана - показываем текущий курс и пороги
func (h *Handler) onPairChosen(ctx context.Context, chatID int64, pair string) {
	if !h.tracked.Tracks(pair) {
		h.send(chatID, "⚠️ Эта пара больше не отслеживается.")
		return
	}

	rateText := "пока неизвестен"
	if point, err := h.store.Get(ctx, pair); err == nil {
		rateText = point.Rate.String()
	} else if !errors.Is(err, domain.ErrPriceNotFound) {
		h.logger.Error("Failed to read rate", slog.String("pair", pair), "err", err)
	}

	h.send(chatID, fmt.Sprintf("Курс %s: %s", domain.DisplayPair(pair), rateText))

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range thresholdChoices {
		btn := tgbotapi.NewInlineKeyboardButtonData(t+"%", cbThreshold+pair+"_"+t)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{btn})
	}

	reply := tgbotapi.NewMessage(chatID, "Выбери порог изменения цены для уведомлений:")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.bot.Send(reply)
}

// Шаг 2: порог выбран - осталось направление
func (h *Handler) onThresholdChosen(chatID int64, payload string) {
	// payload: "<PAIR>_<PCT>"
	parts := strings.SplitN(payload, "_", 2)
	if len(parts) != 2 {
		return
	}
	pair, pct := parts[0], parts[1]

	row := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📈 При росте", cbSubscribe+pair+"_up_"+pct),
		tgbotapi.NewInlineKeyboardButtonData("📉 При падении", cbSubscribe+pair+"_down_"+pct),
	)

	reply := tgbotapi.NewMessage(chatID, "Теперь выбери направление изменения курса:")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	h.bot.Send(reply)
}

// Шаг 3: создаем подписку. База берется из кэша на этот момент;
// если курса еще нет - подписка создается невзведенной (база 0)
// и взведется первым наблюденным курсом.
func (h *Handler) onSubscribe(ctx context.Context, chatID int64, payload string) {
	// payload: "<PAIR>_<DIR>_<PCT>"
	parts := strings.SplitN(payload, "_", 3)
	if len(parts) != 3 {
		return
	}
	pair := parts[0]

	direction, ok := domain.ParseDirection(parts[1])
	if !ok {
		h.send(chatID, "⚠️ Неверное направление.")
		return
	}

	threshold, err := decimal.NewFromString(parts[2])
	if err != nil {
		h.send(chatID, "⚠️ Неверный порог.")
		return
	}

	baseline := decimal.Zero
	if point, err := h.store.Get(ctx, pair); err == nil {
		baseline = point.Rate
	}

	if _, err := h.registry.Create(ctx, chatID, pair, direction, threshold, baseline); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSubscription):
			h.send(chatID, "❌ Неверные параметры подписки.")
		case errors.Is(err, domain.ErrPairNotTracked):
			h.send(chatID, "❌ Эта пара не отслеживается.")
		default:
			h.logger.Error("Failed to create subscription", "err", err)
			h.send(chatID, "⚠️ Не удалось оформить подписку, попробуйте позже.")
		}
		return
	}

	dirText := "росте"
	if direction == domain.DirectionDown {
		dirText = "падении"
	}
	rateText := baseline.String()
	if baseline.IsZero() {
		rateText = "пока неизвестен"
	}

	h.send(chatID, fmt.Sprintf("✅ Подписка оформлена: %s при %s на %s%% (текущий курс: %s)",
		domain.DisplayPair(pair), dirText, threshold.String(), rateText))
}

func (h *Handler) onUnsubscribe(ctx context.Context, chatID int64, payload string) {
	id, err := uuid.Parse(payload)
	if err != nil {
		return
	}

	if err := h.registry.Deactivate(ctx, id); err != nil {
		h.logger.Error("Failed to deactivate subscription", "err", err)
		h.send(chatID, "⚠️ Не удалось отписаться, попробуйте позже.")
		return
	}

	h.send(chatID, "✅ Подписка отключена.")
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	h.bot.Send(msg)
}
