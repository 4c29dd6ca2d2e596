package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adminbot/internal/review"
	"adminbot/pkg/logger"
	"adminbot/pkg/models"

	tele "gopkg.in/telebot.v3"
)

// handleApplications renders the list. The status filter goes to the API
// as a query parameter; the stripe filter is applied client-side, like the
// dashboard's connected/not-connected toggle.
func (b *Bot) handleApplications(c tele.Context, status, stripe string) error {
	if !b.requireAuth(c) {
		return nil
	}
	c.Notify(tele.Typing)

	apps, err := b.Review.Applications(context.Background(), status)
	if err != nil {
		return c.Send("⚠️ Failed to load applications: " + err.Error())
	}
	if stripe != "" {
		apps = review.Filter(apps, "", stripe)
	}
	if len(apps) == 0 {
		return c.Send(messages["no_apps"])
	}

	for _, app := range apps {
		txt := fmt.Sprintf("%s %s\n📞 %s\n🚗 %s %s",
			statusIcon(app.Status), app.FullName, app.PhoneNumber, app.Car.CarName, app.Car.CarModel)
		menu := &tele.ReplyMarkup{}
		menu.Inline(menu.Row(menu.Data("👁 Review", "view_"+app.ApplicationID)))
		c.Send(txt, menu)
	}
	return nil
}

func (b *Bot) handleStats(c tele.Context) error {
	if !b.requireAuth(c) {
		return nil
	}
	apps, err := b.Review.Applications(context.Background(), "")
	if err != nil {
		return c.Send("⚠️ Failed to load applications: " + err.Error())
	}
	stats := review.ComputeStats(apps)
	return c.Send(fmt.Sprintf(
		"📊 DRIVER APPLICATIONS\n\nTotal: %d\n⏳ Pending: %d\n✅ Approved: %d\n❌ Rejected: %d\n💳 Stripe connected: %d",
		stats.Total, stats.Pending, stats.Approved, stats.Rejected, stats.StripeConnected,
	))
}

func (b *Bot) handleCallback(c tele.Context) error {
	if !b.allowed(c) {
		return c.Respond()
	}
	data := callbackData(c)
	session := b.session(c)

	if data == "login_back" {
		return b.handleLoginBack(c, session)
	}

	if !b.requireAuth(c) {
		return c.Respond()
	}

	switch {
	case strings.HasPrefix(data, "view_"):
		return b.handleViewApplication(c, strings.TrimPrefix(data, "view_"))
	case strings.HasPrefix(data, "approve_"):
		return b.handleApprove(c, strings.TrimPrefix(data, "approve_"))
	case strings.HasPrefix(data, "reject_"):
		return b.handleRejectStart(c, session, strings.TrimPrefix(data, "reject_"))
	case strings.HasPrefix(data, "doc_"):
		return b.handleViewDocument(c, strings.TrimPrefix(data, "doc_"))
	case strings.HasPrefix(data, "stripe_"):
		return b.handleStripeRefresh(c, strings.TrimPrefix(data, "stripe_"))
	}
	return c.Respond()
}

func (b *Bot) handleViewApplication(c tele.Context, id string) error {
	app, err := b.Review.Application(context.Background(), id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error(), ShowAlert: true})
	}

	menu := &tele.ReplyMarkup{}
	var rows []tele.Row
	if app.IsPending() {
		rows = append(rows, menu.Row(
			menu.Data("✅ Approve", "approve_"+app.ApplicationID),
			menu.Data("❌ Reject", "reject_"+app.ApplicationID),
		))
	}
	rows = append(rows, menu.Row(
		menu.Data("🪪 License", "doc_license_"+app.ApplicationID),
		menu.Data("📄 Insurance", "doc_insurance_"+app.ApplicationID),
	))
	rows = append(rows, menu.Row(
		menu.Data("🚗 Registration", "doc_registration_"+app.ApplicationID),
		menu.Data("🏷 Sticker", "doc_sticker_"+app.ApplicationID),
	))
	if app.StripeConnected() && !app.StripeOnboardingCompleted {
		rows = append(rows, menu.Row(menu.Data("💳 Refresh Stripe onboarding", "stripe_"+app.ApplicationID)))
	}
	menu.Inline(rows...)

	c.Respond()
	return c.Send(applicationCard(app), menu)
}

func (b *Bot) handleApprove(c tele.Context, id string) error {
	ctx := context.Background()
	app, err := b.Review.Application(ctx, id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error(), ShowAlert: true})
	}

	if err := b.Review.Approve(ctx, app); err != nil {
		if errors.Is(err, review.ErrNotPending) {
			return c.Respond(&tele.CallbackResponse{Text: messages["not_pending"], ShowAlert: true})
		}
		return c.Respond(&tele.CallbackResponse{Text: "Approval failed: " + err.Error(), ShowAlert: true})
	}

	b.Bot.Edit(c.Callback().Message, fmt.Sprintf("%s\n\n%s", applicationCard(app), messages["approved"]))
	return c.Respond(&tele.CallbackResponse{Text: messages["approved"]})
}

// handleRejectStart is the first step of the two-step rejection: the tap
// only discloses the reason prompt, nothing goes on the wire yet.
func (b *Bot) handleRejectStart(c tele.Context, session *UserSession, id string) error {
	app, err := b.Review.Application(context.Background(), id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error(), ShowAlert: true})
	}
	if !app.IsPending() {
		return c.Respond(&tele.CallbackResponse{Text: messages["not_pending"], ShowAlert: true})
	}

	session.State = StateRejectReason
	session.RejectAppID = id
	c.Respond()
	return c.Send(messages["ask_reason"])
}

func (b *Bot) handleRejectReason(c tele.Context, session *UserSession) error {
	ctx := context.Background()
	app, err := b.Review.Application(ctx, session.RejectAppID)
	if err != nil {
		session.State = StateIdle
		return c.Send("⚠️ " + err.Error())
	}

	if err := b.Review.Reject(ctx, app, c.Text()); err != nil {
		switch {
		case errors.Is(err, review.ErrReasonRequired):
			// Stay in the reason state so the operator can retry.
			return c.Send(messages["reason_missing"])
		case errors.Is(err, review.ErrNotPending):
			session.State = StateIdle
			return c.Send(messages["not_pending"])
		default:
			session.State = StateIdle
			return c.Send("⚠️ Rejection failed: " + err.Error())
		}
	}

	session.State = StateIdle
	session.RejectAppID = ""
	b.Log.Info("rejection submitted", logger.String("application_id", app.ApplicationID))
	return c.Send(messages["rejected"])
}

func (b *Bot) handleViewDocument(c tele.Context, data string) error {
	kind, id, ok := strings.Cut(data, "_")
	if !ok {
		return c.Respond()
	}
	app, err := b.Review.Application(context.Background(), id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error(), ShowAlert: true})
	}

	var rawURL, name string
	switch kind {
	case "license":
		rawURL, name = app.DrivingLicenseURL, "Driving License"
	case "insurance":
		rawURL, name = app.InsuranceDocumentURL, "Insurance"
	case "registration":
		rawURL, name = app.VehicleRegistrationURL, "Vehicle Registration"
	case "sticker":
		rawURL, name = app.CarStickerURL, "Car Sticker"
	default:
		return c.Respond()
	}

	url, err := review.DocumentURL(rawURL, name)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf(messages["doc_missing"], name), ShowAlert: true})
	}
	c.Respond()
	return c.Send(fmt.Sprintf("📎 %s:\n%s", name, url))
}

func (b *Bot) handleStripeRefresh(c tele.Context, id string) error {
	ctx := context.Background()
	app, err := b.Review.Application(ctx, id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error(), ShowAlert: true})
	}

	url, err := b.Review.RefreshOnboarding(ctx, app)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Refresh failed: " + err.Error(), ShowAlert: true})
	}
	c.Respond()
	return c.Send(fmt.Sprintf(messages["stripe_link"], url))
}

func (b *Bot) handleText(c tele.Context) error {
	if !b.allowed(c) {
		return nil
	}
	session := b.session(c)
	if session.State == StateIdle {
		return nil
	}

	switch session.State {
	case StatePhone:
		return b.handlePhoneInput(c, session)
	case StateOTP:
		return b.handleOTPInput(c, session)
	case StateRejectReason:
		return b.handleRejectReason(c, session)
	}
	return nil
}

func applicationCard(app *models.DriverApplication) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s APPLICATION %s\n\n", statusIcon(app.Status), app.ApplicationID)
	fmt.Fprintf(&sb, "👤 %s\n📞 %s\n✉️ %s\n🎂 %s\n🏠 %s\n\n",
		app.FullName, app.PhoneNumber, app.Email, app.DateOfBirth, app.Address)
	fmt.Fprintf(&sb, "🚗 %s %s (%d)\n🔢 %s | %s\n\n",
		app.Car.CarName, app.Car.CarModel, app.Car.CarYear, app.Car.LicensePlate, app.Car.CarColor)
	fmt.Fprintf(&sb, "🪪 License %s, expires %s\n📄 Insurance %s, expires %s\n\n",
		app.DrivingLicenseNumber, app.DrivingLicenseExpiryDate,
		app.InsuranceDocumentNumber, app.InsuranceExpiryDate)
	fmt.Fprintf(&sb, "📊 Status: %s", app.Status)
	if app.RejectionReason != nil && *app.RejectionReason != "" {
		fmt.Fprintf(&sb, "\n💬 Reason: %s", *app.RejectionReason)
	}
	if app.StripeConnected() {
		onboarding := "incomplete"
		if app.StripeOnboardingCompleted {
			onboarding = "complete"
		}
		fmt.Fprintf(&sb, "\n💳 Stripe: %s (onboarding %s)", *app.StripeConnectAccountID, onboarding)
	}
	return sb.String()
}

func statusIcon(status string) string {
	switch status {
	case models.StatusPending:
		return "⏳"
	case models.StatusApproved:
		return "✅"
	case models.StatusRejected:
		return "❌"
	}
	return "❔"
}
