// Package facebook verifies Facebook access tokens through the Graph
// debug_token introspection endpoint and fetches the user profile.
package facebook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/calderhq/identity/social"
)

const defaultGraphURL = "https://graph.facebook.com/v19.0"

// Config holds Facebook token introspection settings.
type Config struct {
	AppID     string
	AppSecret string

	GraphURL string

	HTTPClient *http.Client
}

// Verifier implements social.TokenVerifier for Facebook access tokens.
type Verifier struct {
	config     Config
	httpClient *http.Client
}

// New creates a Facebook verifier.
func New(cfg Config) (*Verifier, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, errors.New("facebook: app id and secret are required", errors.CategoryBadInput)
	}

	if cfg.GraphURL == "" {
		cfg.GraphURL = defaultGraphURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Verifier{
		config:     cfg,
		httpClient: client,
	}, nil
}

// Name implements social.TokenVerifier.
func (v *Verifier) Name() string {
	return "facebook"
}

type debugTokenResponse struct {
	Data struct {
		AppID     string `json:"app_id"`
		IsValid   bool   `json:"is_valid"`
		UserID    string `json:"user_id"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"data"`
	Error *graphError `json:"error"`
}

type profileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	Error *graphError `json:"error"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// Verify implements social.TokenVerifier. It introspects the access token
// with app credentials, then fetches the profile with the user token.
func (v *Verifier) Verify(ctx context.Context, accessToken string) (*social.ExternalIdentity, error) {
	if accessToken == "" {
		return nil, social.ErrTokenInvalid.Clone()
	}

	introspection, err := v.debugToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if !introspection.Data.IsValid {
		return nil, social.ErrTokenInvalid.Clone().
			WithMetadata(map[string]any{"provider": "facebook"})
	}

	if introspection.Data.AppID != v.config.AppID {
		return nil, social.ErrAudienceMismatch.Clone().
			WithMetadata(map[string]any{"provider": "facebook", "app_id": introspection.Data.AppID})
	}

	if introspection.Data.ExpiresAt > 0 && time.Unix(introspection.Data.ExpiresAt, 0).Before(time.Now()) {
		return nil, social.ErrTokenExpired.Clone().
			WithMetadata(map[string]any{"provider": "facebook"})
	}

	profile, err := v.fetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if profile.ID == "" || profile.ID != introspection.Data.UserID {
		return nil, social.ErrTokenInvalid.Clone().
			WithMetadata(map[string]any{"provider": "facebook"})
	}

	return &social.ExternalIdentity{
		Provider:       v.Name(),
		ProviderUserID: profile.ID,
		Email:          profile.Email,
		// Graph only returns an email the user confirmed with Facebook.
		EmailVerified: profile.Email != "",
		Name:          profile.Name,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		AvatarURL:     profile.Picture.Data.URL,
	}, nil
}

func (v *Verifier) debugToken(ctx context.Context, accessToken string) (*debugTokenResponse, error) {
	params := url.Values{
		"input_token":  {accessToken},
		"access_token": {v.config.AppID + "|" + v.config.AppSecret},
	}

	var out debugTokenResponse
	if err := v.getJSON(ctx, v.config.GraphURL+"/debug_token?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	if out.Error != nil {
		return nil, social.ErrTokenInvalid.Clone().
			WithMetadata(map[string]any{
				"provider": "facebook",
				"type":     out.Error.Type,
				"code":     out.Error.Code,
			})
	}

	return &out, nil
}

func (v *Verifier) fetchProfile(ctx context.Context, accessToken string) (*profileResponse, error) {
	params := url.Values{
		"fields":       {"id,email,name,first_name,last_name,picture"},
		"access_token": {accessToken},
	}

	var out profileResponse
	if err := v.getJSON(ctx, v.config.GraphURL+"/me?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	if out.Error != nil {
		return nil, social.ErrTokenInvalid.Clone().
			WithMetadata(map[string]any{
				"provider": "facebook",
				"type":     out.Error.Type,
				"code":     out.Error.Code,
			})
	}

	return &out, nil
}

func (v *Verifier) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "facebook: failed to build request")
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return social.ErrProviderCall.Clone().
			WithMetadata(map[string]any{"provider": "facebook", "cause": err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return social.ErrProviderCall.Clone().
			WithMetadata(map[string]any{"provider": "facebook", "cause": err.Error()})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return social.ErrProviderCall.Clone().
			WithMetadata(map[string]any{"provider": "facebook", "status": resp.StatusCode})
	}

	return nil
}
