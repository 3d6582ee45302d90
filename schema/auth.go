package schema

// LoginRequest carries the admin password.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResult is the successful admin login response. ExpiresIn is the token
// lifetime in milliseconds.
type LoginResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// VerifyResult is the /admin/verify response.
type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Subject string `json:"subject"`
}
