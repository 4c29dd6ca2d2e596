package models

// Application review statuses. Transitions out of pending are one-way and
// performed only by the remote API; the client merely requests them.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Car struct {
	CarID           string  `json:"car_id"`
	DriverID        *string `json:"driver_id"`
	VehicleTypeID   *string `json:"vehicle_type_id"`
	PhotoURL        *string `json:"photo_url"`
	CarName         string  `json:"car_name"`
	CarModel        string  `json:"car_model"`
	CarYear         int     `json:"car_year"`
	LicensePlate    string  `json:"license_plate"`
	CarColor        string  `json:"car_color"`
	Status          string  `json:"status"`
	RejectionReason *string `json:"rejection_reason"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type DriverApplication struct {
	ApplicationID             string  `json:"application_id"`
	PhoneNumber               string  `json:"phone_number"`
	PhotoURL                  string  `json:"photo_url"`
	UserID                    *string `json:"user_id"`
	Status                    string  `json:"status"`
	FullName                  string  `json:"full_name"`
	DateOfBirth               string  `json:"date_of_birth"`
	Address                   string  `json:"address"`
	Email                     string  `json:"email"`
	DrivingLicenseURL         string  `json:"driving_license_url"`
	DrivingLicenseNumber      string  `json:"driving_license_number"`
	DrivingLicenseExpiryDate  string  `json:"driving_license_expiry_date"`
	VehicleRegistrationURL    string  `json:"vehicle_registration_url"`
	VehicleRegistrationNumber string  `json:"vehicle_registration_number"`
	InsuranceDocumentURL      string  `json:"insurance_document_url"`
	InsuranceExpiryDate       string  `json:"insurance_expiry_date"`
	InsuranceDocumentNumber   string  `json:"insurance_document_number"`
	CarStickerURL             string  `json:"car_sticker_url"`
	CarID                     string  `json:"car_id"`
	ReviewedBy                *string `json:"reviewed_by"`
	RejectionReason           *string `json:"rejection_reason"`
	StripeOnboardingURL       *string `json:"stripe_onboarding_url"`
	StripeOnboardingExpiresAt *string `json:"stripe_onboarding_expires_at"`
	StripeOnboardingCompleted bool    `json:"stripe_onboarding_completed"`
	StripeConnectAccountID    *string `json:"stripe_connect_account_id"`
	CreatedAt                 string  `json:"created_at"`
	UpdatedAt                 string  `json:"updated_at"`
	Car                       Car     `json:"car"`
}

func (a *DriverApplication) IsPending() bool {
	return a != nil && a.Status == StatusPending
}

func (a *DriverApplication) StripeConnected() bool {
	return a != nil && a.StripeConnectAccountID != nil && *a.StripeConnectAccountID != ""
}
