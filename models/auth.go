package models

// SignInRequest is the login payload
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInResponse carries the access token used to open a chat connection
type SignInResponse struct {
	AccessToken string `json:"accessToken"`
}
