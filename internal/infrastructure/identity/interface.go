package identity

import (
	"context"
)

// ClientInterface defines the methods required from the identity provider client
type ClientInterface interface {
	SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	ResendConfirmationCode(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*Tokens, *User, error)
	Refresh(ctx context.Context, refreshToken, userID string) (*Tokens, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}
