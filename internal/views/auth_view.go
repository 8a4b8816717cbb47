package views

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	// Username accepts either the username or the email address.
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenDetails struct {
	Access    string  `json:"access"`
	Refresh   string  `json:"refresh"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	UserID    string  `json:"user_id"`
	Balance   string  `json:"balance"`
	AccountID *string `json:"account_id"`
}

type AuthResponse struct {
	Message string       `json:"message"`
	Tokens  TokenDetails `json:"tokens"`
}
