package models

import "encoding/json"

// Response is the envelope every API endpoint wraps its payload in.
type Response struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Credentials is what gets persisted to the shared token slot on disk.
// Both tokens live and die together.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
