package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-partsearch-bot/internal/adapters/telegram"
	"tg-partsearch-bot/internal/domain"
	"tg-partsearch-bot/internal/infra/metrics"
	"tg-partsearch-bot/internal/usecase/lookup"
)

// Handler обслуживает вебхук бота.
type Handler struct {
	bot          *tgbotapi.BotAPI
	log          zerolog.Logger
	users        domain.UserRepo
	coupons      domain.CouponRepo
	jobs         domain.SearchQueue
	trialBalance int64
	unitCost     int64
	adminTGID    int64
}

// NewHandler создаёт обработчик.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, users domain.UserRepo, coupons domain.CouponRepo, jobs domain.SearchQueue, trialBalance, unitCost, adminTGID int64) *Handler {
	return &Handler{
		bot:          bot,
		log:          log,
		users:        users,
		coupons:      coupons,
		jobs:         jobs,
		trialBalance: trialBalance,
		unitCost:     unitCost,
		adminTGID:    adminTGID,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		h.reply(msg.Chat.ID, "Не удалось определить пользователя", nil)
		return
	}
	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		h.handleStart(ctx, msg)
	case strings.HasPrefix(text, "/help"):
		h.handleHelp(msg.Chat.ID)
	case strings.HasPrefix(text, "/balance"):
		h.handleBalance(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/mode"):
		h.handleModeMenu(ctx, msg.Chat.ID, msg.From.ID)
	case strings.HasPrefix(text, "/coupon"):
		code := strings.TrimSpace(strings.TrimPrefix(text, "/coupon"))
		h.handleCoupon(ctx, msg.Chat.ID, msg.From.ID, code)
	case strings.HasPrefix(text, "/"):
		h.reply(msg.Chat.ID, "Неизвестная команда. Используйте /help", nil)
	default:
		h.enqueueSearch(ctx, msg.Chat.ID, msg.From, text)
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	switch {
	case data == "help_menu":
		h.handleHelp(cb.Message.Chat.ID)
	case data == "balance":
		h.handleBalance(ctx, cb.Message.Chat.ID, cb.From.ID)
	case data == "mode_menu":
		h.handleModeMenu(ctx, cb.Message.Chat.ID, cb.From.ID)
	case data == "coupon_hint":
		h.reply(cb.Message.Chat.ID, "Отправьте /coupon КОД, чтобы пополнить баланс", nil)
	case strings.HasPrefix(data, "mode:"):
		h.handleModeSelect(ctx, cb.Message.Chat.ID, cb.From.ID, strings.TrimPrefix(data, "mode:"))
	}
	start := time.Now()
	_, err := h.bot.Request(tgbotapi.NewCallback(cb.ID, ""))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", strconv.FormatInt(cb.From.ID, 10), start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось ответить на callback")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	profile := domain.TelegramProfile{
		TGUserID:  msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}
	user, err := h.users.GetOrCreate(ctx, profile, h.trialBalance)
	if err != nil {
		h.log.Error().Err(err).Int64("user", msg.From.ID).Msg("не удалось сохранить профиль")
		h.reply(msg.Chat.ID, "Не удалось сохранить профиль. Попробуйте позже", nil)
		return
	}
	h.reply(msg.Chat.ID, h.buildStartMessage(user), h.mainKeyboard())
}

func (h *Handler) handleHelp(chatID int64) {
	h.reply(chatID, h.buildHelpMessage(), h.mainKeyboard())
}

func (h *Handler) handleBalance(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.reply(chatID, "Сначала отправьте /start", nil)
			return
		}
		h.reply(chatID, "Не удалось получить баланс. Попробуйте позже", nil)
		return
	}
	lines := []string{
		fmt.Sprintf("💰 Баланс: %s.", lookup.FormatMoney(user.Balance)),
		fmt.Sprintf("Стоимость поиска — %s за артикул.", lookup.FormatMoney(h.unitCost)),
		fmt.Sprintf("Режим поиска: %s.", modeLabel(user.Mode)),
	}
	h.reply(chatID, strings.Join(lines, "\n"), nil)
}

func (h *Handler) handleModeMenu(ctx context.Context, chatID, tgUserID int64) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(modeLabel(domain.SearchModeActive), "mode:active"),
			tgbotapi.NewInlineKeyboardButtonData(modeLabel(domain.SearchModeSold), "mode:sold"),
			tgbotapi.NewInlineKeyboardButtonData(modeLabel(domain.SearchModeEnded), "mode:ended"),
		),
	)
	h.reply(chatID, fmt.Sprintf("Текущий режим: %s. Выберите новый:", modeLabel(user.Mode)), &markup)
}

func (h *Handler) handleModeSelect(ctx context.Context, chatID, tgUserID int64, raw string) {
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	mode := domain.ParseSearchMode(raw)
	if err := h.users.SetSearchMode(ctx, user.ID, mode); err != nil {
		h.log.Error().Err(err).Int64("user", tgUserID).Msg("не удалось сохранить режим поиска")
		h.reply(chatID, "Не удалось сохранить режим. Попробуйте позже", nil)
		return
	}
	h.reply(chatID, fmt.Sprintf("Режим поиска: %s", modeLabel(mode)), nil)
}

func (h *Handler) handleCoupon(ctx context.Context, chatID, tgUserID int64, code string) {
	if code == "" {
		h.reply(chatID, "Укажите код: /coupon КОД", nil)
		return
	}
	user, err := h.users.GetByTGID(ctx, tgUserID)
	if err != nil {
		h.reply(chatID, "Сначала отправьте /start", nil)
		return
	}
	newBalance, err := h.coupons.Redeem(ctx, user.ID, code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCouponNotFound):
			h.reply(chatID, "Такого купона нет. Проверьте код", nil)
		case errors.Is(err, domain.ErrCouponUsed):
			h.reply(chatID, "Этот купон уже активирован", nil)
		default:
			h.log.Error().Err(err).Int64("user", tgUserID).Msg("не удалось активировать купон")
			h.reply(chatID, "Не удалось активировать купон. Попробуйте позже", nil)
		}
		return
	}
	h.reply(chatID, fmt.Sprintf("Купон активирован. Баланс: %s", lookup.FormatMoney(newBalance)), nil)
}

func (h *Handler) enqueueSearch(ctx context.Context, chatID int64, from *tgbotapi.User, text string) {
	if len(lookup.SplitPartNumbers(text)) == 0 {
		h.reply(chatID, "Не нашли ни одного артикула в сообщении", nil)
		return
	}

	profile := domain.TelegramProfile{TGUserID: from.ID, Username: from.UserName, FirstName: from.FirstName}
	if _, err := h.users.GetOrCreate(ctx, profile, h.trialBalance); err != nil {
		h.log.Error().Err(err).Int64("user", from.ID).Msg("не удалось получить профиль")
		h.reply(chatID, "Не удалось обработать запрос. Попробуйте позже", nil)
		return
	}

	job := domain.SearchJob{
		ID:          uuid.NewString(),
		UserTGID:    from.ID,
		ChatID:      chatID,
		RawText:     text,
		RequestedAt: time.Now().UTC(),
	}
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.log.Error().Err(err).Int64("user", from.ID).Msg("не удалось поставить задачу поиска")
		h.reply(chatID, "Не удалось поставить запрос в очередь, попробуйте позже", nil)
		return
	}

	metrics.IncLookupOverall()
	metrics.IncLookupForUser(from.ID)
	h.reply(chatID, "Ищем по вашим артикулам, ответ придёт в ближайшее время", nil)
}

// IsAdmin сообщает, является ли пользователь назначенным администратором.
func (h *Handler) IsAdmin(tgUserID int64) bool {
	return h.adminTGID != 0 && tgUserID == h.adminTGID
}

func modeLabel(mode domain.SearchMode) string {
	switch mode {
	case domain.SearchModeSold:
		return "Проданные"
	case domain.SearchModeEnded:
		return "Завершённые"
	default:
		return "Активные"
	}
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := h.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}

func (h *Handler) mainKeyboard() *tgbotapi.InlineKeyboardMarkup {
	buttons := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Баланс", "balance"),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Режим поиска", "mode_menu"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎟 Купон", "coupon_hint"),
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Помощь", "help_menu"),
		),
	)
	return &buttons
}

func (h *Handler) buildStartMessage(user domain.User) string {
	lines := []string{
		"👋 Добро пожаловать в бот поиска запчастей!",
		"",
		fmt.Sprintf("На вашем балансе %s — хватит на первые запросы.", lookup.FormatMoney(user.Balance)),
		"",
		"Как пользоваться ботом:",
		"1. Отправьте артикулы одним сообщением — через пробел, запятую или с новой строки.",
		fmt.Sprintf("   Каждый артикул стоит %s; при пустом результате средства вернутся.", lookup.FormatMoney(h.unitCost)),
		"2. ⚙️ Выберите режим поиска: активные, проданные или завершённые лоты.",
		"3. 🎟 Пополняйте баланс купоном: /coupon КОД.",
		"",
		"Ответ придёт сообщением со списком и файлом-отчётом.",
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) buildHelpMessage() string {
	sections := []string{
		"📖 Основные команды:",
		"",
		"• Отправьте артикулы текстом — бот найдёт их на маркетплейсе.",
		"• /balance — текущий баланс и режим поиска.",
		"• /mode — сменить режим поиска.",
		"• /coupon КОД — пополнить баланс купоном.",
		"",
		"За каждый артикул списывается фиксированная стоимость.",
		"Если ничего не найдено или поиск не удался, списание возвращается полностью.",
	}
	return strings.Join(sections, "\n")
}
