package clients

import (
	"log/slog"

	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/central-university-dev/linktracker/internal/domain/errors"
)

// Registry selects a client by URL. Clients are consulted in registration
// order, so more specific URL shapes must be registered first.
type Registry struct {
	clients []ResourceClient
}

func NewRegistry(clients ...ResourceClient) *Registry {
	return &Registry{clients: clients}
}

// NewDefaultRegistry registers the built-in providers: GitHub issue/PR,
// GitHub repository, StackOverflow answer, StackOverflow question.
func NewDefaultRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	return NewRegistry(
		NewGitHubIssueClient(cfg, logger),
		NewGitHubRepositoryClient(cfg, logger),
		NewStackOverflowAnswerClient(cfg, logger),
		NewStackOverflowQuestionClient(cfg, logger),
	)
}

func (r *Registry) Select(url string) (ResourceClient, error) {
	for _, client := range r.clients {
		if client.Supports(url) {
			return client, nil
		}
	}

	return nil, &errors.ErrClientNotFound{URL: url}
}

func (r *Registry) Clients() []ResourceClient {
	return r.clients
}
