package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"markov-chatter/internal/config"
	"markov-chatter/internal/cooldown"
	"markov-chatter/internal/corpus"
	"markov-chatter/internal/humanize"
	"markov-chatter/internal/markov"
	"markov-chatter/internal/metrics"
	"markov-chatter/internal/trigger"
)

const defaultReplyTimeout = 15 * time.Second

// Generator produces a reply from a chat history.
type Generator interface {
	Generate(history []string) (string, bool)
}

// Renderer draws text onto an image and returns the encoded bytes.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// Deps groups the collaborators the bot is built from.
type Deps struct {
	Store     *corpus.Store
	Policy    *trigger.Policy
	Engine    Generator
	Cooldown  *cooldown.Controller
	Durations *humanize.Formatter
	Renderer  Renderer
}

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	botID       int64
	botUsername string

	store     *corpus.Store
	policy    *trigger.Policy
	engine    Generator
	cooldown  *cooldown.Controller
	durations *humanize.Formatter
	renderer  Renderer

	replyMode   config.ReplyMode
	memMessages int
	typingDelay bool
	limiter     *chatLimiter
	// replyTimeout bounds typing delays and limiter waits of a single outbound reply.
	replyTimeout time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	wg    sync.WaitGroup
}

func New(cfg *config.Config, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}
	b := newBot(botAPISender{api: api}, cfg, deps)
	b.api = api
	b.botID = api.Self.ID
	b.botUsername = api.Self.UserName
	if b.botUsername != "" {
		b.policy.AddTokens("@" + b.botUsername)
	}
	log.Infof("authorized as @%s (id=%d)", b.botUsername, b.botID)
	return b, nil
}

func newBot(s sender, cfg *config.Config, deps Deps) *Bot {
	return &Bot{
		s:            s,
		store:        deps.Store,
		policy:       deps.Policy,
		engine:       deps.Engine,
		cooldown:     deps.Cooldown,
		durations:    deps.Durations,
		renderer:     deps.Renderer,
		replyMode:    cfg.ReplyMode,
		memMessages:  cfg.MemMessages,
		typingDelay:  cfg.TypingDelay,
		limiter:      newChatLimiter(cfg.SendRatePerMinute),
		replyTimeout: defaultReplyTimeout,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// Start polls updates until ctx is cancelled, then waits for scheduled replies to finish.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := chatKey(msg.Chat.ID)
	b.store.Ensure(chatID)

	switch {
	case msg.GroupChatCreated || msg.SuperGroupChatCreated || len(msg.NewChatMembers) > 0:
		b.handleJoin(ctx, msg)
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	default:
		b.handleIncomingMessage(ctx, msg)
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := chatKey(msg.Chat.ID)
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	added, err := b.store.AppendMessage(chatID, text)
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			log.WithField("chat_id", chatID).Error("chat record missing after ensure")
		}
		return
	}
	if !added {
		return
	}
	metrics.MessagesRecorded.Inc()

	now := b.now()
	d := b.policy.Decide(trigger.Event{
		Text:       text,
		ReplyToBot: b.isReplyToBot(msg),
		OffUntil:   b.store.OffUntil(chatID, now),
		Now:        now,
	})
	switch {
	case d.Suppressed:
		metrics.TriggerDecisions.WithLabelValues("suppressed").Inc()
		return
	case !d.Proceed:
		metrics.TriggerDecisions.WithLabelValues("skipped").Inc()
		return
	}
	metrics.TriggerDecisions.WithLabelValues("proceed").Inc()

	reply, ok := b.engine.Generate(b.store.Messages(chatID))
	if !ok {
		metrics.GenerationEmpty.Inc()
		return
	}
	log.WithFields(log.Fields{"chat_id": chatID, "addressed": d.Addressed, "roll": d.Roll}).Debugf("generated reply: %q", reply)

	target := msg.Chat.ID
	b.goSend(ctx, func(ctx context.Context) { b.deliver(ctx, target, reply) })
}

// goSend runs fn off the update loop so one chat's delays and throttling never hold up other chats.
// fn outlives cancellation of ctx but is bounded by replyTimeout.
func (b *Bot) goSend(ctx context.Context, fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.replyTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// reply sends a command answer asynchronously.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.goSend(ctx, func(ctx context.Context) {
		if err := b.sendMessage(ctx, chatID, text); err != nil {
			log.WithField("chat_id", chatID).Warnf("failed to send reply: %v", err)
		}
	})
}

func (b *Bot) isReplyToBot(msg *tgbotapi.Message) bool {
	r := msg.ReplyToMessage
	return r != nil && r.From != nil && b.botID != 0 && r.From.ID == b.botID
}

// deliver imitates a human typing before posting the reply.
func (b *Bot) deliver(ctx context.Context, chatID int64, reply string) {
	action := tgbotapi.ChatTyping
	if b.replyMode == config.ReplyMeme {
		action = tgbotapi.ChatUploadPhoto
	}
	if b.typingDelay {
		if err := b.sleep(ctx, b.randomDelay(0, time.Second)); err != nil {
			return
		}
		if _, err := b.s.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
			log.Printf("failed to send chat action: %v", err)
		}
		if err := b.sleep(ctx, b.randomDelay(time.Second, 3*time.Second)); err != nil {
			return
		}
	}

	if b.replyMode == config.ReplyMeme {
		if err := b.sendMeme(ctx, chatID, reply); err != nil {
			log.WithField("chat_id", chatID).Warnf("failed to send meme: %v", err)
			return
		}
		metrics.RepliesSent.WithLabelValues("meme").Inc()
		return
	}
	if err := b.sendMessage(ctx, chatID, markov.LinkMentions(html.EscapeString(reply))); err != nil {
		log.WithField("chat_id", chatID).Warnf("failed to send message: %v", err)
		return
	}
	metrics.RepliesSent.WithLabelValues("text").Inc()
}

func (b *Bot) randomDelay(lo, hi time.Duration) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo + time.Duration(b.rng.Int64N(int64(hi-lo)+1))
}

func (b *Bot) sendMeme(ctx context.Context, chatID int64, text string) error {
	img, err := b.renderer.Render(text)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := b.limiter.Wait(ctx, chatID); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "meme.jpg", Bytes: img})
	if _, err := b.s.Send(photo); err != nil {
		return err
	}
	return nil
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx, chatID); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.s.Send(msg)
	return err
}

func chatKey(id int64) string { return strconv.FormatInt(id, 10) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
