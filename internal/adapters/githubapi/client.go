package githubapi

import (
	"github.com/google/go-github/v66/github"
)

// NewClient создаёт REST клиента GitHub с токеном.
func NewClient(token string) *github.Client {
	return github.NewClient(nil).WithAuthToken(token)
}
