package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Credential lengths enforced at insertion time
const (
	AuthTokenLength   = 40
	CSRFTokenLength   = 160
	BearerTokenLength = 111
	BearerPrefix      = "Bearer "
)

// Credentials is the secret bundle an account authenticates with
type Credentials struct {
	AuthToken   string // auth_token cookie
	CSRFToken   string // ct0 cookie, echoed in x-csrf-token
	BearerToken string // authorization header, including the "Bearer " prefix
}

// Validate checks the fixed-length and format constraints of each token.
func (c Credentials) Validate() error {
	if len(c.AuthToken) != AuthTokenLength {
		return fmt.Errorf("%w: auth_token must be %d characters, got %d", ErrInvalidCredentials, AuthTokenLength, len(c.AuthToken))
	}
	if len(c.CSRFToken) != CSRFTokenLength {
		return fmt.Errorf("%w: csrf_token must be %d characters, got %d", ErrInvalidCredentials, CSRFTokenLength, len(c.CSRFToken))
	}
	if len(c.BearerToken) != BearerTokenLength {
		return fmt.Errorf("%w: bearer_token must be %d characters, got %d", ErrInvalidCredentials, BearerTokenLength, len(c.BearerToken))
	}
	if !strings.HasPrefix(c.BearerToken, BearerPrefix) {
		return fmt.Errorf("%w: bearer_token must start with %q", ErrInvalidCredentials, BearerPrefix)
	}
	return nil
}

// Account is a credential-bound upstream account. Lower priority is tried first.
type Account struct {
	ID          int64
	Priority    int
	Credentials Credentials
}

// Target identifies the entity whose content is fetched
type Target struct {
	Name string // display name, e.g. "jack"
	ID   string // stable upstream identifier (rest id)
}

// ProfileURL builds the public profile URL for a target
func (t *Target) ProfileURL() string {
	return fmt.Sprintf("https://x.com/%s", t.Name)
}

var (
	// Matches twitter.com/name or x.com/name (not /i/ or deeper paths)
	targetURLPattern = regexp.MustCompile(`(?:twitter|x)\.com/([A-Za-z0-9_]{1,15})/?$`)
	// Valid screen name pattern
	targetNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
)

// ParseTargetInput extracts a Target from a profile URL or screen name
func ParseTargetInput(input string) (*Target, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}

	input = strings.TrimPrefix(input, "@")

	if matches := targetURLPattern.FindStringSubmatch(input); len(matches) > 1 {
		return &Target{Name: matches[1]}, nil
	}

	if targetNamePattern.MatchString(input) {
		return &Target{Name: input}, nil
	}

	return nil, fmt.Errorf("invalid profile URL or screen name: %s", input)
}

// NormalizeName folds a display name to the key used by the identity mapping.
// Screen names are case-insensitive upstream.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
