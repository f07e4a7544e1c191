package dto

// InvokeAgentRequest represents the request body for POST /agents/{id}/invoke/.
type InvokeAgentRequest struct {
	Input string `json:"input"`
}

// RegisterRequest represents the request body for POST /auth/users/.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for POST /auth/token/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
