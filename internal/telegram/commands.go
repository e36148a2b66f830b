package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"markov-chatter/internal/cooldown"
	"markov-chatter/internal/metrics"
	"markov-chatter/internal/trigger"
)

const (
	textStart = "Отлично! 😊\n\nЧто бы я работал, тебе нужно выдать мне права администратора. 🫂\n" +
		"После выдачи я смогу работать как положено 👀"
	textJoin = "<b>Привет! 🙋</b>\n\nСпасибо за то что добавил меня к себе в беседу.\n" +
		"Для моей работы выдай мне права администратора."
	textAdminsOnly      = "⚠️ Данную команду могут использовать только <b>администраторы чата</b>."
	textStats           = "<b>Статистика ℹ️</b>\n\nВ базе данных этой группы хранится <code>%d</code> сообщений."
	textStatsDisabled   = "\n\n⏸ Генерация сообщений выключена ещё на <code>%s</code>."
	textDisableTooShort = "Пожалуйста, укажи время на которое нужно выключить генерацию сообщений. " +
		"Указанное тобою значение (<code>%s</code>) уж слишком мало.\n\nПример: <code>/disable 5 часов</code>"
	textDisableUnparsable = "Не получилось понять, на сколько выключить генерацию сообщений.\n\n" +
		"Пример: <code>/disable 5 часов</code>"
	textDisabled = "Окей, я отключу генерацию сообщений в этой беседе на <code>%s</code>.\n\n" +
		"ℹ️ Администраторы могут меня включить, прописав команду /enable."
	textEnabled        = "Окей, теперь я снова могу генерировать сообщения! 🙂"
	textAlreadyEnabled = "Я и так включён, так как не был отключён администраторами беседы до этого."
	textMemEmpty       = "Недостаточно сообщений для создания мема."
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(ctx, msg.Chat.ID, textStart)
	case "stats", "statistics", "stat":
		b.handleStats(ctx, msg)
	case "disable", "turn_off", "turnoff", "off":
		if b.requireAdmin(ctx, msg) {
			b.handleDisable(ctx, msg)
		}
	case "enable", "turn_on", "turnon", "on":
		if b.requireAdmin(ctx, msg) {
			b.handleEnable(ctx, msg)
		}
	case "mem":
		b.handleMem(ctx, msg)
	default:
		b.handleIncomingMessage(ctx, msg)
	}
}

func (b *Bot) handleJoin(ctx context.Context, msg *tgbotapi.Message) {
	joined := msg.GroupChatCreated || msg.SuperGroupChatCreated
	for _, u := range msg.NewChatMembers {
		if b.botID != 0 && u.ID == b.botID {
			joined = true
		}
	}
	if !joined {
		return
	}
	log.WithField("chat_id", msg.Chat.ID).Info("added to chat")
	b.reply(ctx, msg.Chat.ID, textJoin)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	now := b.now()
	rec, _ := b.store.Get(chatKey(msg.Chat.ID))
	text := fmt.Sprintf(textStats, len(rec.Messages))
	if trigger.Suppressed(rec.OffUntil, now) {
		text += fmt.Sprintf(textStatsDisabled, b.durations.Duration(rec.OffUntil-now.Unix()))
	}
	b.reply(ctx, msg.Chat.ID, text)
}

var errNotAdmin = errors.New("sender is not a chat administrator")

// checkAdmin reports errNotAdmin unless the sender administers the chat. Private chats have no admins.
func (b *Bot) checkAdmin(msg *tgbotapi.Message) error {
	if msg.Chat.IsPrivate() {
		return nil
	}
	if msg.From == nil {
		return errNotAdmin
	}
	member, err := b.s.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: msg.Chat.ID, UserID: msg.From.ID},
	})
	if err != nil {
		return fmt.Errorf("get chat member: %w", err)
	}
	if !member.IsAdministrator() && !member.IsCreator() {
		return errNotAdmin
	}
	return nil
}

func (b *Bot) requireAdmin(ctx context.Context, msg *tgbotapi.Message) bool {
	err := b.checkAdmin(msg)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errNotAdmin):
		b.reply(ctx, msg.Chat.ID, textAdminsOnly)
	default:
		log.Printf("admin check in chat %d: %v", msg.Chat.ID, err)
	}
	return false
}

func (b *Bot) handleDisable(ctx context.Context, msg *tgbotapi.Message) {
	res, err := b.cooldown.Disable(chatKey(msg.Chat.ID), msg.CommandArguments(), b.now())
	switch {
	case errors.Is(err, cooldown.ErrDurationTooShort):
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf(textDisableTooShort, b.durations.Duration(res.Seconds)))
	case errors.Is(err, cooldown.ErrUnparsableDuration):
		b.reply(ctx, msg.Chat.ID, textDisableUnparsable)
	case err != nil:
		log.Printf("disable chat %d: %v", msg.Chat.ID, err)
	default:
		log.WithFields(log.Fields{"chat_id": msg.Chat.ID, "off_until": res.OffUntil}).Info("generation disabled")
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf(textDisabled, b.durations.Duration(res.Seconds)))
	}
}

func (b *Bot) handleEnable(ctx context.Context, msg *tgbotapi.Message) {
	wasActive, err := b.cooldown.Enable(chatKey(msg.Chat.ID), b.now())
	if err != nil {
		log.Printf("enable chat %d: %v", msg.Chat.ID, err)
		return
	}
	if wasActive {
		b.reply(ctx, msg.Chat.ID, textEnabled)
		return
	}
	b.reply(ctx, msg.Chat.ID, textAlreadyEnabled)
}

// handleMem renders the most recent messages of the chat as a meme.
func (b *Bot) handleMem(ctx context.Context, msg *tgbotapi.Message) {
	last := b.store.LastMessages(chatKey(msg.Chat.ID), b.memMessages)
	if len(last) == 0 {
		b.reply(ctx, msg.Chat.ID, textMemEmpty)
		return
	}
	chatID := msg.Chat.ID
	b.goSend(ctx, func(ctx context.Context) {
		if err := b.sendMeme(ctx, chatID, strings.Join(last, "\n")); err != nil {
			log.WithField("chat_id", chatID).Warnf("failed to send meme: %v", err)
			return
		}
		metrics.RepliesSent.WithLabelValues("mem").Inc()
	})
}
