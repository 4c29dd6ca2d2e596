package bot

import (
	"strings"
	"sync"
	"time"

	"adminbot/config"
	"adminbot/internal/auth"
	"adminbot/internal/review"
	"adminbot/pkg/logger"

	tele "gopkg.in/telebot.v3"
)

const (
	StateIdle         = "idle"
	StatePhone        = "awaiting_phone"
	StateOTP          = "awaiting_otp"
	StateRejectReason = "awaiting_reject_reason"
)

// UserSession is the per-chat conversation state.
type UserSession struct {
	State       string
	Login       *auth.Flow
	RejectAppID string
}

type Bot struct {
	Bot    *tele.Bot
	Auth   *auth.Service
	Review *review.Service
	Log    logger.ILogger
	Cfg    *config.Config

	// telebot dispatches each update in its own goroutine.
	sessMu   sync.Mutex
	Sessions map[int64]*UserSession
}

var messages = map[string]string{
	"welcome":        "👋 Welcome to the Neighborly admin console.",
	"no_entry":       "🚫 This bot is for Neighborly administrators only.",
	"ask_phone":      "📱 Enter your phone number to receive a verification code.\n\nYou can also log in with /login <email> <password>.",
	"ask_otp":        "🔑 Enter the 6-digit code sent to %s:",
	"otp_sent":       "✅ Code sent. Please check your phone.",
	"access_denied":  "🚫 Access Denied. You do not have permission to access the admin dashboard.",
	"login_ok":       "🎉 Login successful. Welcome, %s!",
	"logged_out":     "👋 You have been logged out.",
	"session_gone":   "⚠️ Your session has expired. Use /start to log in again.",
	"menu":           "🛠 Admin dashboard:",
	"no_apps":        "📭 No driver applications found.",
	"ask_reason":     "✍️ Send the rejection reason as a message.",
	"approved":       "✅ Application approved.",
	"rejected":       "❌ Application rejected.",
	"reason_missing": "⚠️ Rejection Reason Required. Please provide a reason for rejection.",
	"not_pending":    "⚠️ Only pending applications can be actioned.",
	"stripe_link":    "💳 Fresh Stripe onboarding link:\n%s",
	"doc_missing":    "⚠️ %s document is not available.",
	"login_usage":    "Usage: /login <email> <password>",
}

func New(cfg *config.Config, authSvc *auth.Service, reviewSvc *review.Service, log logger.ILogger) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.AdminBotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}
	bot := &Bot{
		Bot:      b,
		Auth:     authSvc,
		Review:   reviewSvc,
		Log:      log,
		Cfg:      cfg,
		Sessions: make(map[int64]*UserSession),
	}
	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	b.Log.Info("🤖 Admin bot started")
	b.Bot.Start()
}

func (b *Bot) Stop() {
	b.Bot.Stop()
}

func (b *Bot) registerHandlers() {
	b.Bot.Handle("/start", b.handleStart)
	b.Bot.Handle("/login", b.handleLoginCommand)

	b.Bot.Handle("📋 All Applications", func(c tele.Context) error { return b.handleApplications(c, "", "") })
	b.Bot.Handle("⏳ Pending", func(c tele.Context) error { return b.handleApplications(c, "pending", "") })
	b.Bot.Handle("✅ Approved", func(c tele.Context) error { return b.handleApplications(c, "approved", "") })
	b.Bot.Handle("❌ Rejected", func(c tele.Context) error { return b.handleApplications(c, "rejected", "") })
	b.Bot.Handle("💳 Stripe connected", func(c tele.Context) error { return b.handleApplications(c, "", "connected") })
	b.Bot.Handle("💳 No Stripe", func(c tele.Context) error { return b.handleApplications(c, "", "not-connected") })
	b.Bot.Handle("📊 Stats", b.handleStats)
	b.Bot.Handle("🚪 Logout", b.handleLogout)

	b.Bot.Handle(tele.OnCallback, b.handleCallback)
	b.Bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) session(c tele.Context) *UserSession {
	id := c.Sender().ID
	b.sessMu.Lock()
	defer b.sessMu.Unlock()
	session, ok := b.Sessions[id]
	if !ok {
		session = &UserSession{State: StateIdle}
		b.Sessions[id] = session
	}
	return session
}

// allowed gates the bot on the configured operator allowlist. An empty list
// means any chat may reach the login flow; the API role check still applies.
func (b *Bot) allowed(c tele.Context) bool {
	if len(b.Cfg.AdminChatIDs) == 0 {
		return true
	}
	for _, id := range b.Cfg.AdminChatIDs {
		if c.Sender().ID == id {
			return true
		}
	}
	return false
}

func (b *Bot) showMenu(c tele.Context) error {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text("📋 All Applications"), menu.Text("⏳ Pending")),
		menu.Row(menu.Text("✅ Approved"), menu.Text("❌ Rejected")),
		menu.Row(menu.Text("💳 Stripe connected"), menu.Text("💳 No Stripe")),
		menu.Row(menu.Text("📊 Stats"), menu.Text("🚪 Logout")),
	)
	return c.Send(messages["menu"], menu)
}

// callbackData unifies telebot's unique/payload split back into the raw
// "<action>_<id>" string the handlers dispatch on.
func callbackData(c tele.Context) string {
	if unique := c.Callback().Unique; unique != "" {
		return unique
	}
	return strings.TrimPrefix(c.Callback().Data, "\f")
}
