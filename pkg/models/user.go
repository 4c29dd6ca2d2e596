package models

const RoleAdmin = "admin"

type User struct {
	ID                string  `json:"id"`
	Phone             string  `json:"phone"`
	ProfilePicture    *string `json:"profile_picture"`
	IsVerified        bool    `json:"isVerified"`
	Name              string  `json:"name"`
	DOB               string  `json:"dob"`
	Email             string  `json:"email"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
	IsProfileComplete bool    `json:"isProfileComplete"`
	Role              string  `json:"role"`
	LastLocation      *string `json:"lastLocation"`
	AdminVerified     bool    `json:"admin_verified"`
	Status            string  `json:"status"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
