package auth

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"adminbot/internal/cache"
	"adminbot/internal/session"
	"adminbot/pkg/logger"
	"adminbot/pkg/models"
)

// UserCacheKey is the cache slot for the current-user identity query.
const UserCacheKey = "/users/me"

var (
	// ErrAccessDenied: the account authenticated fine but isn't an admin.
	ErrAccessDenied = errors.New("auth: you do not have permission to access the admin dashboard")
	// ErrNoSession: an identity read was attempted with no token present.
	ErrNoSession = errors.New("auth: not logged in")

	ErrPhoneRequired       = errors.New("auth: phone number is required")
	ErrOTPLength           = errors.New("auth: verification code must be 6 digits")
	ErrCredentialsRequired = errors.New("auth: email and password are required")
)

// API is the slice of the gateway client the login flow needs.
type API interface {
	SendOTP(ctx context.Context, phoneNumber string) (string, error)
	VerifyOTP(ctx context.Context, phoneNumber, otp string) (*models.AuthResponse, error)
	AdminLogin(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
}

// Service drives the login state machine and owns the session side of it:
// tokens are persisted only after a successful verification by an admin
// account, and the current user is a cached identity query gated on token
// presence.
type Service struct {
	api   API
	store *session.Store
	cache *cache.Cache
	log   logger.ILogger
}

func NewService(api API, store *session.Store, c *cache.Cache, log logger.ILogger) *Service {
	s := &Service{api: api, store: store, cache: c, log: log}
	// Any credential change, local or from another process, invalidates the
	// identity query. A cleared token in one process goes absent everywhere.
	store.Subscribe(func() {
		c.Invalidate(UserCacheKey)
	})
	return s
}

// SubmitPhone fires the send-code request. The flow only advances to the
// otp state after the request succeeds; a failure leaves it at phone.
func (s *Service) SubmitPhone(ctx context.Context, f *Flow, phoneNumber string) (string, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return "", ErrPhoneRequired
	}
	message, err := s.api.SendOTP(ctx, phoneNumber)
	if err != nil {
		return "", err
	}
	f.phoneNumber = phoneNumber
	f.state = StateOTP
	return message, nil
}

// SubmitOTP verifies the code. The session is persisted only when the
// returned account's role is admin; otherwise nothing is stored and the
// flow stays at the otp state.
func (s *Service) SubmitOTP(ctx context.Context, f *Flow, otp string) (*models.User, error) {
	otp = strings.TrimSpace(otp)
	if len(otp) != 6 || !allDigits(otp) {
		return nil, ErrOTPLength
	}
	resp, err := s.api.VerifyOTP(ctx, f.phoneNumber, otp)
	if err != nil {
		return nil, err
	}
	return s.establish(f, resp)
}

// SubmitCredentials is the email+password variant: one step, same role check.
func (s *Service) SubmitCredentials(ctx context.Context, f *Flow, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	resp, err := s.api.AdminLogin(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.establish(f, resp)
}

func (s *Service) establish(f *Flow, resp *models.AuthResponse) (*models.User, error) {
	if !resp.User.IsAdmin() {
		s.log.Warning("non-admin login attempt", logger.String("user_id", resp.User.ID))
		return nil, ErrAccessDenied
	}
	if err := s.store.SetCredentials(models.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		return nil, err
	}
	user := resp.User
	s.cache.Set(UserCacheKey, &user)
	f.state = StateAuthenticated
	s.log.Info("admin logged in", logger.String("user_id", user.ID))
	return &user, nil
}

// CurrentUser resolves the identity query through the cache. With no token
// present it fails locally without touching the network.
func (s *Service) CurrentUser(ctx context.Context) (*models.User, error) {
	if s.store.Token() == "" {
		return nil, ErrNoSession
	}
	value, err := s.cache.GetOrFetch(ctx, UserCacheKey, func(ctx context.Context) (interface{}, error) {
		return s.api.Me(ctx)
	})
	if err != nil {
		return nil, err
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, ErrNoSession
	}
	return user, nil
}

// LoggedIn reports token presence without any network call.
func (s *Service) LoggedIn() bool {
	return s.store.Token() != ""
}

// Logout clears the session everywhere: memory, the shared slot on disk,
// and through the subscriber above the cached identity.
func (s *Service) Logout() {
	s.store.Clear()
	s.cache.Clear()
	s.log.Info("logged out")
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
