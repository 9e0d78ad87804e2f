package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the result of a successful login: the bearer token for
// subsequent probe calls and the roles embedded in its claims, which are
// the input to capability resolution.
type Session struct {
	Token string
	User  string
	Roles []string
}

// sessionClaims are the JWT claims issued by the backend.
type sessionClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Login authenticates against the backend and returns the session.
//
// Unlike widget probes, the session bootstrap is retried with exponential
// backoff: without a session there is no dashboard at all, and a
// transient failure here would otherwise force the user to relaunch.
func Login(ctx context.Context, baseURL, user, password string) (*Session, error) {
	var sess *Session

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		s, err := login(ctx, baseURL, user, password)
		if err != nil {
			return err
		}
		sess = s
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("logging in to %s: %w", baseURL, err)
	}
	return sess, nil
}

func login(ctx context.Context, baseURL, user, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"user": user, "password": password})
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Bad credentials won't get better on retry.
		return nil, backoff.Permanent(fmt.Errorf("login rejected with status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decoding login response: %w", err))
	}

	return sessionFromToken(payload.Token)
}

// sessionFromToken extracts user and roles from the token claims.
// The client does not hold the signing secret; the token is parsed
// without verification and trusted only as far as the server that will
// re-verify it on every probe call.
func sessionFromToken(token string) (*Session, error) {
	var claims sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parsing session token: %w", err))
	}

	return &Session{
		Token: token,
		User:  claims.Subject,
		Roles: claims.Roles,
	}, nil
}
