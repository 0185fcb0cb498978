package clients

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/central-university-dev/linktracker/internal/common"
	"github.com/central-university-dev/linktracker/internal/common/httputil"
	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

const gitHubSource = "GitHub API"

type gitHubAPI struct {
	client  *resty.Client
	token   string
	baseURL string
	logger  *slog.Logger
}

func newGitHubAPI(cfg *config.Config, logger *slog.Logger) gitHubAPI {
	baseURL := cfg.GitHubBaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}

	return gitHubAPI{
		client:  httputil.CreateHTTPClient(cfg, logger, "github"),
		token:   cfg.GitHubAPIToken,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (a gitHubAPI) request() *resty.Request {
	request := a.client.R().SetHeader("Accept", "application/vnd.github.v3+json")

	if a.token != "" {
		request.SetHeader("Authorization", "token "+a.token)
	}

	return request
}

type gitHubUser struct {
	Login string `json:"login"`
}

type gitHubRepository struct {
	FullName    string     `json:"full_name"`
	Description string     `json:"description"`
	Owner       gitHubUser `json:"owner"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	PushedAt    *time.Time `json:"pushed_at"`
}

type gitHubIssue struct {
	Number    int64      `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	User      gitHubUser `json:"user"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}

// GitHubRepositoryClient tracks repository-level activity.
type GitHubRepositoryClient struct {
	api gitHubAPI
}

func NewGitHubRepositoryClient(cfg *config.Config, logger *slog.Logger) *GitHubRepositoryClient {
	return &GitHubRepositoryClient{api: newGitHubAPI(cfg, logger)}
}

func (c *GitHubRepositoryClient) Name() string {
	return "github_repository"
}

func (c *GitHubRepositoryClient) Supports(url string) bool {
	_, _, err := common.ParseGitHubURL(url)
	return err == nil
}

func (c *GitHubRepositoryClient) FetchChanges(ctx context.Context, link *models.Link) ([]models.ChangeEvent, error) {
	owner, repo, err := common.ParseGitHubURL(link.URL)
	if err != nil {
		c.api.logger.Warn("Не удалось разобрать ссылку на репозиторий",
			"linkID", link.ID,
			"url", link.URL,
			"error", err,
		)

		return []models.ChangeEvent{}, nil
	}

	var repository gitHubRepository

	url := fmt.Sprintf("%s/repos/%s/%s", c.api.baseURL, owner, repo)
	if err := getJSON(ctx, c.api.request(), url, gitHubSource, models.GitHub, &repository); err != nil {
		return []models.ChangeEvent{}, err
	}

	name := repository.FullName
	if name == "" {
		name = owner + "/" + repo
	}

	event := models.ChangeEvent{
		Kind:        models.ChangeRepository,
		Title:       name,
		Author:      repository.Owner.Login,
		Description: fmt.Sprintf("Обновление репозитория %s по ссылке %s", name, link.URL),
	}

	return detect(link, event,
		derefTime(repository.CreatedAt),
		derefTime(repository.UpdatedAt),
		derefTime(repository.PushedAt),
	), nil
}

// GitHubIssueClient tracks a single issue or pull request.
type GitHubIssueClient struct {
	api gitHubAPI
}

func NewGitHubIssueClient(cfg *config.Config, logger *slog.Logger) *GitHubIssueClient {
	return &GitHubIssueClient{api: newGitHubAPI(cfg, logger)}
}

func (c *GitHubIssueClient) Name() string {
	return "github_issue"
}

func (c *GitHubIssueClient) Supports(url string) bool {
	_, err := common.ParseGitHubIssueURL(url)
	return err == nil
}

func (c *GitHubIssueClient) FetchChanges(ctx context.Context, link *models.Link) ([]models.ChangeEvent, error) {
	ref, err := common.ParseGitHubIssueURL(link.URL)
	if err != nil {
		c.api.logger.Warn("Не удалось разобрать ссылку на issue",
			"linkID", link.ID,
			"url", link.URL,
			"error", err,
		)

		return []models.ChangeEvent{}, nil
	}

	var issue gitHubIssue

	// pull requests share the issues endpoint
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.api.baseURL, ref.Owner, ref.Repo, ref.Number)
	if err := getJSON(ctx, c.api.request(), url, gitHubSource, models.GitHub, &issue); err != nil {
		return []models.ChangeEvent{}, err
	}

	kind, noun := models.ChangeIssue, "issue"
	if ref.IsPull {
		kind, noun = models.ChangePullRequest, "pull request"
	}

	event := models.ChangeEvent{
		Kind:   kind,
		Title:  issue.Title,
		Author: issue.User.Login,
		Description: fmt.Sprintf("Обновление %s #%d «%s» от %s по ссылке %s",
			noun, ref.Number, issue.Title, issue.User.Login, link.URL),
	}

	return detect(link, event,
		derefTime(issue.CreatedAt),
		derefTime(issue.UpdatedAt),
		derefTime(issue.ClosedAt),
	), nil
}
