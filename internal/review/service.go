package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adminbot/internal/cache"
	"adminbot/pkg/logger"
	"adminbot/pkg/models"
)

var (
	// ErrNotPending guards every status transition request: the client only
	// asks the API to act on applications it still sees as pending. The API
	// remains the authority; a race with another admin surfaces as a server
	// error for whoever writes second.
	ErrNotPending = errors.New("review: only pending applications can be actioned")
	// ErrReasonRequired: rejections need a non-empty reason.
	ErrReasonRequired = errors.New("review: rejection reason is required")
	// ErrNoStripeAccount: onboarding refresh needs a connected account.
	ErrNoStripeAccount = errors.New("review: application has no stripe connect account")
	// ErrNotFound: the application id is not in the current list.
	ErrNotFound = errors.New("review: application not found")
)

// DocumentMissingError names the document a reviewer asked for that the
// application carries no URL for.
type DocumentMissingError struct {
	Name string
}

func (e *DocumentMissingError) Error() string {
	return fmt.Sprintf("review: %s document is not available", e.Name)
}

// API is the slice of the gateway client the review surface needs.
type API interface {
	ListApplications(ctx context.Context, status string) ([]models.DriverApplication, error)
	ApproveApplication(ctx context.Context, applicationID string) error
	RejectApplication(ctx context.Context, applicationID, reason string) error
	RefreshOnboarding(ctx context.Context, accountID string) (string, error)
}

type Stats struct {
	Total           int
	Pending         int
	Approved        int
	Rejected        int
	StripeConnected int
}

// Service reads applications through the request cache and forwards review
// actions to the API, invalidating the list keys on every successful write
// so the next read reflects the new status.
type Service struct {
	api   API
	cache *cache.Cache
	log   logger.ILogger
}

func NewService(api API, c *cache.Cache, log logger.ILogger) *Service {
	return &Service{api: api, cache: c, log: log}
}

func listKey(status string) string {
	if status == "" {
		return "/driver-applications"
	}
	return "/driver-applications?status=" + status
}

func (s *Service) invalidateLists() {
	s.cache.Invalidate(
		listKey(""),
		listKey(models.StatusPending),
		listKey(models.StatusApproved),
		listKey(models.StatusRejected),
	)
}

// Applications lists applications, optionally filtered server-side by
// status. Concurrent calls for the same filter share one request.
func (s *Service) Applications(ctx context.Context, status string) ([]models.DriverApplication, error) {
	value, err := s.cache.GetOrFetch(ctx, listKey(status), func(ctx context.Context) (interface{}, error) {
		return s.api.ListApplications(ctx, status)
	})
	if err != nil {
		return nil, err
	}
	apps, _ := value.([]models.DriverApplication)
	return apps, nil
}

// Application resolves a single record out of the cached list.
func (s *Service) Application(ctx context.Context, applicationID string) (*models.DriverApplication, error) {
	apps, err := s.Applications(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].ApplicationID == applicationID {
			return &apps[i], nil
		}
	}
	return nil, ErrNotFound
}

// Approve requests the pending -> approved transition. Non-pending records
// are refused locally; no network call is made.
func (s *Service) Approve(ctx context.Context, app *models.DriverApplication) error {
	if !app.IsPending() {
		return ErrNotPending
	}
	if err := s.api.ApproveApplication(ctx, app.ApplicationID); err != nil {
		return err
	}
	s.invalidateLists()
	s.log.Info("application approved", logger.String("application_id", app.ApplicationID))
	return nil
}

// Reject requests the pending -> rejected transition with a reason.
// Both guards run before anything goes on the wire.
func (s *Service) Reject(ctx context.Context, app *models.DriverApplication, reason string) error {
	if !app.IsPending() {
		return ErrNotPending
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if err := s.api.RejectApplication(ctx, app.ApplicationID, reason); err != nil {
		return err
	}
	s.invalidateLists()
	s.log.Info("application rejected", logger.String("application_id", app.ApplicationID))
	return nil
}

// RefreshOnboarding asks for a fresh Stripe onboarding link for the
// application's connected account.
func (s *Service) RefreshOnboarding(ctx context.Context, app *models.DriverApplication) (string, error) {
	if !app.StripeConnected() {
		return "", ErrNoStripeAccount
	}
	url, err := s.api.RefreshOnboarding(ctx, *app.StripeConnectAccountID)
	if err != nil {
		return "", err
	}
	s.invalidateLists()
	return url, nil
}

// DocumentURL returns the stored URL for a named document, or a descriptive
// error when the application carries none.
func DocumentURL(url, name string) (string, error) {
	if url == "" {
		return "", &DocumentMissingError{Name: name}
	}
	return url, nil
}

// Filter applies the dashboard's client-side status and stripe filters.
// Either filter may be empty to match everything; stripe accepts
// "connected" and "not-connected".
func Filter(apps []models.DriverApplication, status, stripe string) []models.DriverApplication {
	var out []models.DriverApplication
	for _, app := range apps {
		if status != "" && app.Status != status {
			continue
		}
		if stripe == "connected" && !app.StripeConnected() {
			continue
		}
		if stripe == "not-connected" && app.StripeConnected() {
			continue
		}
		out = append(out, app)
	}
	return out
}

// ComputeStats summarizes the unfiltered list for the dashboard header.
func ComputeStats(apps []models.DriverApplication) Stats {
	stats := Stats{Total: len(apps)}
	for _, app := range apps {
		switch app.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		}
		if app.StripeConnected() {
			stats.StripeConnected++
		}
	}
	return stats
}
