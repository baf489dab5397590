package identity

import "time"

// SessionResult is the value every login method returns on success: a signed
// access token plus the user's public profile. Token minting parameters live
// in the TokenService; callers only see the finished session.
type SessionResult struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	User        *Profile   `json:"user"`
}

func newSessionResult(token string, user *User, expiresAt time.Time) *SessionResult {
	res := &SessionResult{
		AccessToken: token,
		User:        user.PublicProfile(),
	}
	if !expiresAt.IsZero() {
		res.ExpiresAt = &expiresAt
	}
	return res
}
