// Package identity is the HTTP client for the external identity provider.
// The provider speaks a Cognito-compatible JSON 1.1 protocol: every call is
// a POST to the service endpoint with the operation named in a target
// header, and client calls (signup, login, refresh) are unauthenticated
// apart from the optional per-request secret hash.
package identity

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"saverr/internal/shared/apperr"
)

const (
	defaultTimeout = 30 * time.Second

	targetPrefix = "AWSCognitoIdentityProviderService."
	contentType  = "application/x-amz-json-1.1"
)

// Client handles communication with the identity provider
type Client struct {
	httpClient   *http.Client
	endpoint     string
	clientID     string
	clientSecret string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new identity provider client. clientSecret may be
// empty, in which case no secret hash is sent.
func NewClient(endpoint, clientID, clientSecret string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Tokens is the credential set issued on login or refresh. RefreshToken is
// empty on refresh responses, which reuse the original refresh token.
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int
}

// User is the provider-side profile attached to a token
type User struct {
	ID    string
	Email string
	Name  string
}

// SignUpResult reports whether email confirmation is still pending
type SignUpResult struct {
	UserConfirmed bool
}

// secretHash derives the per-request hash the provider requires when a
// client secret is configured: HMAC-SHA256(username + clientID, secret),
// base64 encoded.
func (c *Client) secretHash(username string) string {
	if c.clientSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(c.clientSecret))
	mac.Write([]byte(username + c.clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignUp registers a new user
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error) {
	payload := map[string]any{
		"ClientId": c.clientID,
		"Username": email,
		"Password": password,
		"UserAttributes": []map[string]string{
			{"Name": "email", "Value": email},
			{"Name": "name", "Value": name},
		},
	}
	if hash := c.secretHash(email); hash != "" {
		payload["SecretHash"] = hash
	}

	var out struct {
		UserConfirmed bool `json:"UserConfirmed"`
	}
	if err := c.call(ctx, "SignUp", payload, &out); err != nil {
		return nil, err
	}
	return &SignUpResult{UserConfirmed: out.UserConfirmed}, nil
}

// ConfirmSignUp confirms a registration with the emailed code
func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	payload := map[string]any{
		"ClientId":         c.clientID,
		"Username":         email,
		"ConfirmationCode": code,
	}
	if hash := c.secretHash(email); hash != "" {
		payload["SecretHash"] = hash
	}
	return c.call(ctx, "ConfirmSignUp", payload, &struct{}{})
}

// ResendConfirmationCode re-sends the confirmation code email
func (c *Client) ResendConfirmationCode(ctx context.Context, email string) error {
	payload := map[string]any{
		"ClientId": c.clientID,
		"Username": email,
	}
	if hash := c.secretHash(email); hash != "" {
		payload["SecretHash"] = hash
	}
	return c.call(ctx, "ResendConfirmationCode", payload, &struct{}{})
}

// Login authenticates with the password grant and returns tokens plus the
// user profile looked up from the fresh access token.
func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, *User, error) {
	authParams := map[string]string{
		"USERNAME": email,
		"PASSWORD": password,
	}
	if hash := c.secretHash(email); hash != "" {
		authParams["SECRET_HASH"] = hash
	}

	payload := map[string]any{
		"ClientId":       c.clientID,
		"AuthFlow":       "USER_PASSWORD_AUTH",
		"AuthParameters": authParams,
	}

	var out authResponse
	if err := c.call(ctx, "InitiateAuth", payload, &out); err != nil {
		return nil, nil, err
	}
	if out.AuthenticationResult.AccessToken == "" {
		if out.ChallengeName != "" {
			return nil, nil, apperr.Validationf("additional authentication required: %s", out.ChallengeName)
		}
		return nil, nil, apperr.Internal("authentication failed", nil)
	}

	tokens := out.AuthenticationResult.tokens()
	user, err := c.GetUser(ctx, tokens.AccessToken)
	if err != nil {
		// Token issuance succeeded; a profile lookup failure should not
		// fail the login.
		user = &User{Email: email}
	}

	return tokens, user, nil
}

// Refresh exchanges a refresh token for fresh access and id tokens. The
// provider requires the secret hash keyed on the user id, not the email.
func (c *Client) Refresh(ctx context.Context, refreshToken, userID string) (*Tokens, error) {
	authParams := map[string]string{
		"REFRESH_TOKEN": refreshToken,
	}
	if hash := c.secretHash(userID); hash != "" {
		authParams["SECRET_HASH"] = hash
	}

	payload := map[string]any{
		"ClientId":       c.clientID,
		"AuthFlow":       "REFRESH_TOKEN_AUTH",
		"AuthParameters": authParams,
	}

	var out authResponse
	if err := c.call(ctx, "InitiateAuth", payload, &out); err != nil {
		return nil, err
	}
	if out.AuthenticationResult.AccessToken == "" {
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	return out.AuthenticationResult.tokens(), nil
}

// GetUser fetches the profile behind an access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	payload := map[string]any{
		"AccessToken": accessToken,
	}

	var out struct {
		Username       string `json:"Username"`
		UserAttributes []struct {
			Name  string `json:"Name"`
			Value string `json:"Value"`
		} `json:"UserAttributes"`
	}
	if err := c.call(ctx, "GetUser", payload, &out); err != nil {
		return nil, err
	}

	user := &User{}
	for _, attr := range out.UserAttributes {
		switch attr.Name {
		case "sub":
			user.ID = attr.Value
		case "email":
			user.Email = attr.Value
		case "name":
			user.Name = attr.Value
		}
	}
	if user.Name == "" {
		user.Name = user.Email
	}
	return user, nil
}

// ForgotPassword starts a password reset, emailing a code to the user
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	payload := map[string]any{
		"ClientId": c.clientID,
		"Username": email,
	}
	if hash := c.secretHash(email); hash != "" {
		payload["SecretHash"] = hash
	}
	return c.call(ctx, "ForgotPassword", payload, &struct{}{})
}

// ResetPassword completes a password reset with the emailed code
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	payload := map[string]any{
		"ClientId":         c.clientID,
		"Username":         email,
		"ConfirmationCode": code,
		"Password":         newPassword,
	}
	if hash := c.secretHash(email); hash != "" {
		payload["SecretHash"] = hash
	}
	return c.call(ctx, "ConfirmForgotPassword", payload, &struct{}{})
}

type authResponse struct {
	AuthenticationResult authResult `json:"AuthenticationResult"`
	ChallengeName        string     `json:"ChallengeName"`
}

type authResult struct {
	AccessToken  string `json:"AccessToken"`
	IdToken      string `json:"IdToken"`
	RefreshToken string `json:"RefreshToken"`
	ExpiresIn    int    `json:"ExpiresIn"`
}

func (r authResult) tokens() *Tokens {
	expiresIn := r.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	return &Tokens{
		AccessToken:  r.AccessToken,
		IDToken:      r.IdToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    expiresIn,
	}
}

// providerError is the provider's JSON error body
type providerError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// call executes one JSON 1.1 operation against the provider
func (c *Client) call(ctx context.Context, operation string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Amz-Target", targetPrefix+operation)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Unavailable("identity service unavailable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var perr providerError
		if err := json.Unmarshal(respBody, &perr); err != nil {
			return fmt.Errorf("identity request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return classifyError(perr)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// classifyError maps provider exception types onto the error taxonomy.
// NotAuthorized and UserNotFound collapse into the same message so login
// failures do not reveal whether an account exists.
func classifyError(perr providerError) error {
	name := perr.Type
	if idx := strings.LastIndexByte(name, '#'); idx >= 0 {
		name = name[idx+1:]
	}

	switch name {
	case "NotAuthorizedException", "UserNotFoundException":
		return apperr.Unauthorized("Invalid email or password")
	case "UserNotConfirmedException":
		return apperr.Validation("Please verify your email address before logging in")
	case "UsernameExistsException":
		return apperr.Validation("An account with this email already exists")
	case "InvalidPasswordException", "InvalidParameterException", "CodeMismatchException", "ExpiredCodeException":
		return apperr.Validation(perr.Message)
	case "LimitExceededException", "TooManyRequestsException":
		return apperr.Unavailable("identity service is throttling requests", nil)
	default:
		return apperr.Internal(fmt.Sprintf("identity provider error: %s", name), nil)
	}
}
