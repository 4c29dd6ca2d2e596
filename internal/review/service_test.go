package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"adminbot/internal/cache"
	"adminbot/pkg/logger"
	"adminbot/pkg/models"
)

type fakeAPI struct {
	apps []models.DriverApplication

	listCalls    int
	approveCalls int
	rejectCalls  int
	refreshCalls int

	lastReason    string
	approveErr    error
	rejectErr     error
	onboardingURL string
}

func (f *fakeAPI) ListApplications(ctx context.Context, status string) ([]models.DriverApplication, error) {
	f.listCalls++
	if status == "" {
		return f.apps, nil
	}
	var out []models.DriverApplication
	for _, app := range f.apps {
		if app.Status == status {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeAPI) ApproveApplication(ctx context.Context, applicationID string) error {
	f.approveCalls++
	if f.approveErr != nil {
		return f.approveErr
	}
	f.setStatus(applicationID, models.StatusApproved)
	return nil
}

func (f *fakeAPI) RejectApplication(ctx context.Context, applicationID, reason string) error {
	f.rejectCalls++
	f.lastReason = reason
	if f.rejectErr != nil {
		return f.rejectErr
	}
	f.setStatus(applicationID, models.StatusRejected)
	return nil
}

func (f *fakeAPI) RefreshOnboarding(ctx context.Context, accountID string) (string, error) {
	f.refreshCalls++
	return f.onboardingURL, nil
}

func (f *fakeAPI) setStatus(applicationID, status string) {
	for i := range f.apps {
		if f.apps[i].ApplicationID == applicationID {
			f.apps[i].Status = status
		}
	}
}

func pendingApp(id string) models.DriverApplication {
	return models.DriverApplication{
		ApplicationID: id,
		FullName:      "Test Driver",
		Status:        models.StatusPending,
	}
}

func newTestService(apps ...models.DriverApplication) (*Service, *fakeAPI) {
	api := &fakeAPI{apps: apps}
	log := logger.New("review-test", "error")
	return NewService(api, cache.New(time.Minute, log), log), api
}

func TestApproveGuardOnNonPending(t *testing.T) {
	for _, status := range []string{models.StatusApproved, models.StatusRejected} {
		svc, api := newTestService()
		app := pendingApp("app-123")
		app.Status = status

		if err := svc.Approve(context.Background(), &app); !errors.Is(err, ErrNotPending) {
			t.Fatalf("status %s: expected ErrNotPending, got %v", status, err)
		}
		if err := svc.Reject(context.Background(), &app, "some reason"); !errors.Is(err, ErrNotPending) {
			t.Fatalf("status %s: expected ErrNotPending, got %v", status, err)
		}
		if api.approveCalls != 0 || api.rejectCalls != 0 {
			t.Fatalf("status %s: guard failure must not issue a network call", status)
		}
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc, api := newTestService()
	app := pendingApp("app-123")

	for _, reason := range []string{"", "   ", "\t\n"} {
		if err := svc.Reject(context.Background(), &app, reason); !errors.Is(err, ErrReasonRequired) {
			t.Fatalf("reason %q: expected ErrReasonRequired, got %v", reason, err)
		}
	}
	if api.rejectCalls != 0 {
		t.Fatal("missing reason must not issue a network call")
	}
}

func TestRejectSendsTrimmedReason(t *testing.T) {
	svc, api := newTestService(pendingApp("app-123"))
	app := pendingApp("app-123")

	if err := svc.Reject(context.Background(), &app, "  expired license  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.lastReason != "expired license" {
		t.Fatalf("expected trimmed reason, got %q", api.lastReason)
	}
}

func TestApproveInvalidatesListCache(t *testing.T) {
	svc, api := newTestService(pendingApp("app-123"))
	ctx := context.Background()

	apps, err := svc.Applications(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apps) != 1 || apps[0].Status != models.StatusPending {
		t.Fatalf("unexpected list %+v", apps)
	}

	// Cached: no second request.
	svc.Applications(ctx, "")
	if api.listCalls != 1 {
		t.Fatalf("expected a single list fetch, got %d", api.listCalls)
	}

	if err := svc.Approve(ctx, &apps[0]); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if api.approveCalls != 1 {
		t.Fatalf("expected one approve call, got %d", api.approveCalls)
	}

	// The next read refetches and reflects the new status without any
	// manual refresh trigger.
	updated, err := svc.Applications(ctx, "")
	if err != nil {
		t.Fatalf("list after approve: %v", err)
	}
	if api.listCalls != 2 {
		t.Fatalf("expected refetch after approve, got %d list calls", api.listCalls)
	}
	if updated[0].Status != models.StatusApproved {
		t.Fatalf("expected approved status, got %s", updated[0].Status)
	}
}

func TestApplicationLookup(t *testing.T) {
	svc, _ := newTestService(pendingApp("app-1"), pendingApp("app-2"))

	app, err := svc.Application(context.Background(), "app-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.ApplicationID != "app-2" {
		t.Fatalf("unexpected application %+v", app)
	}

	if _, err := svc.Application(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshOnboardingRequiresAccount(t *testing.T) {
	svc, api := newTestService()
	app := pendingApp("app-123")

	if _, err := svc.RefreshOnboarding(context.Background(), &app); !errors.Is(err, ErrNoStripeAccount) {
		t.Fatalf("expected ErrNoStripeAccount, got %v", err)
	}
	if api.refreshCalls != 0 {
		t.Fatal("missing account must not issue a network call")
	}

	account := "acct_1"
	app.StripeConnectAccountID = &account
	api.onboardingURL = "https://connect.stripe.com/setup/x"

	url, err := svc.RefreshOnboarding(context.Background(), &app)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != api.onboardingURL {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestDocumentURL(t *testing.T) {
	if _, err := DocumentURL("", "Driving License"); err == nil {
		t.Fatal("expected error for missing document")
	} else {
		var missing *DocumentMissingError
		if !errors.As(err, &missing) || missing.Name != "Driving License" {
			t.Fatalf("unexpected error %v", err)
		}
	}

	url, err := DocumentURL("https://cdn.example.com/license.pdf", "Driving License")
	if err != nil || url != "https://cdn.example.com/license.pdf" {
		t.Fatalf("unexpected result %q, %v", url, err)
	}
}

func TestFilterAndStats(t *testing.T) {
	account := "acct_1"
	approved := pendingApp("app-2")
	approved.Status = models.StatusApproved
	approved.StripeConnectAccountID = &account
	rejected := pendingApp("app-3")
	rejected.Status = models.StatusRejected

	apps := []models.DriverApplication{pendingApp("app-1"), approved, rejected}

	if got := Filter(apps, models.StatusPending, ""); len(got) != 1 || got[0].ApplicationID != "app-1" {
		t.Fatalf("status filter: unexpected %+v", got)
	}
	if got := Filter(apps, "", "connected"); len(got) != 1 || got[0].ApplicationID != "app-2" {
		t.Fatalf("stripe filter: unexpected %+v", got)
	}
	if got := Filter(apps, "", "not-connected"); len(got) != 2 {
		t.Fatalf("not-connected filter: unexpected %+v", got)
	}

	stats := ComputeStats(apps)
	want := Stats{Total: 3, Pending: 1, Approved: 1, Rejected: 1, StripeConnected: 1}
	if stats != want {
		t.Fatalf("expected %+v got %+v", want, stats)
	}
}
