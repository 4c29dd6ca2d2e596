package auth

// State tracks where a login conversation stands.
type State string

const (
	// StatePhone: collecting the phone number.
	StatePhone State = "phone"
	// StateOTP: collecting the 6-digit code sent to that number.
	StateOTP State = "otp"
	// StateCredentials: email+password variant, no OTP step.
	StateCredentials State = "credentials"
	// StateAuthenticated: terminal; the conversation leaves the login flow.
	StateAuthenticated State = "authenticated"
)

// Flow is one login conversation. It only ever moves
// phone -> otp -> authenticated (or credentials -> authenticated); the otp
// step can navigate back to phone explicitly.
type Flow struct {
	state       State
	phoneNumber string
}

func NewFlow() *Flow {
	return &Flow{state: StatePhone}
}

func NewCredentialsFlow() *Flow {
	return &Flow{state: StateCredentials}
}

func (f *Flow) State() State {
	return f.state
}

func (f *Flow) PhoneNumber() string {
	return f.phoneNumber
}

// Back returns from the otp step to phone entry, discarding the number.
func (f *Flow) Back() {
	if f.state == StateOTP {
		f.state = StatePhone
		f.phoneNumber = ""
	}
}
