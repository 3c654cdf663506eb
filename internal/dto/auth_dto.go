package dto

// LoginResult is what a completed Microsoft sign-in hands back to the client.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	AccountId   string `json:"account_id"`
	UserEmail   string `json:"user_email"`
	ChatId      string `json:"chat_id"`
}

type AdminEmailsResponse struct {
	AdminEmails []string `json:"admin_emails"`
}
