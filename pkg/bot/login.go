package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adminbot/internal/auth"
	"adminbot/pkg/logger"

	tele "gopkg.in/telebot.v3"
)

func (b *Bot) handleStart(c tele.Context) error {
	if !b.allowed(c) {
		return c.Send(messages["no_entry"])
	}
	session := b.session(c)

	if b.Auth.LoggedIn() {
		user, err := b.Auth.CurrentUser(context.Background())
		if err == nil {
			session.State = StateIdle
			c.Send(fmt.Sprintf(messages["login_ok"], user.Name))
			return b.showMenu(c)
		}
		// A dead token was cleared by the identity check; fall through to
		// the login flow. Other failures are transient, report and keep
		// the session.
		if !errors.Is(err, auth.ErrNoSession) && b.Auth.LoggedIn() {
			return c.Send("⚠️ " + err.Error())
		}
	}

	c.Send(messages["welcome"], tele.RemoveKeyboard)
	return b.startLogin(c, session)
}

func (b *Bot) startLogin(c tele.Context, session *UserSession) error {
	session.Login = auth.NewFlow()
	session.State = StatePhone
	return c.Send(messages["ask_phone"])
}

func (b *Bot) handleLoginCommand(c tele.Context) error {
	if !b.allowed(c) {
		return c.Send(messages["no_entry"])
	}
	args := strings.Fields(c.Message().Payload)
	if len(args) != 2 {
		return c.Send(messages["login_usage"])
	}
	session := b.session(c)
	session.Login = auth.NewCredentialsFlow()

	c.Notify(tele.Typing)
	user, err := b.Auth.SubmitCredentials(context.Background(), session.Login, args[0], args[1])
	if err != nil {
		if errors.Is(err, auth.ErrAccessDenied) {
			return c.Send(messages["access_denied"])
		}
		return c.Send("⚠️ Login failed: " + err.Error())
	}

	session.State = StateIdle
	c.Send(fmt.Sprintf(messages["login_ok"], user.Name))
	return b.showMenu(c)
}

func (b *Bot) handlePhoneInput(c tele.Context, session *UserSession) error {
	c.Notify(tele.Typing)
	_, err := b.Auth.SubmitPhone(context.Background(), session.Login, c.Text())
	if err != nil {
		// State stays at phone entry.
		return c.Send("⚠️ Failed to send code: " + err.Error())
	}

	session.State = StateOTP
	c.Send(messages["otp_sent"])

	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("⬅️ Back to phone number", "login_back")))
	return c.Send(fmt.Sprintf(messages["ask_otp"], session.Login.PhoneNumber()), menu)
}

func (b *Bot) handleOTPInput(c tele.Context, session *UserSession) error {
	c.Notify(tele.Typing)
	user, err := b.Auth.SubmitOTP(context.Background(), session.Login, c.Text())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrOTPLength):
			return c.Send("⚠️ " + err.Error())
		case errors.Is(err, auth.ErrAccessDenied):
			// No token was persisted; the operator stays on the otp step.
			return c.Send(messages["access_denied"])
		default:
			return c.Send("⚠️ Verification failed: " + err.Error())
		}
	}

	session.State = StateIdle
	b.Log.Info("operator authenticated", logger.Int64("chat_id", c.Sender().ID))
	c.Send(fmt.Sprintf(messages["login_ok"], user.Name))
	return b.showMenu(c)
}

func (b *Bot) handleLoginBack(c tele.Context, session *UserSession) error {
	if session.Login != nil {
		session.Login.Back()
	}
	session.State = StatePhone
	c.Respond()
	return c.Send(messages["ask_phone"])
}

func (b *Bot) handleLogout(c tele.Context) error {
	if !b.allowed(c) {
		return c.Send(messages["no_entry"])
	}
	b.Auth.Logout()
	session := b.session(c)
	session.State = StateIdle
	session.Login = nil
	return c.Send(messages["logged_out"], tele.RemoveKeyboard)
}

// requireAuth fences dashboard actions. The operator allowlist comes
// first: the session token is process-global, so a logged-in process must
// not answer chats outside the allowlist. The token check itself is local
// presence; a token another process revoked already went absent through
// the slot watcher, so no network call happens here.
func (b *Bot) requireAuth(c tele.Context) bool {
	if !b.allowed(c) {
		c.Send(messages["no_entry"])
		return false
	}
	if b.Auth.LoggedIn() {
		return true
	}
	c.Send(messages["session_gone"])
	return false
}
