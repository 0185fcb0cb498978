package common

import (
	"regexp"
	"strconv"

	"github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
)

var (
	githubRepoRegex   = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/?#]+)/([^/?#]+)(?:[/?#].*)?$`)
	githubIssueRegex  = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/?#]+)/([^/?#]+)/(issues|pull)/(\d+)(?:[/?#].*)?$`)
	soQuestionRegex   = regexp.MustCompile(`^https?://(?:www\.)?stackoverflow\.com/questions/(\d+)(?:[/?#].*)?$`)
	soShortAnswerRe   = regexp.MustCompile(`^https?://(?:www\.)?stackoverflow\.com/(?:a|answers)/(\d+)(?:[/?#].*)?$`)
	soLongAnswerRegex = regexp.MustCompile(`^https?://(?:www\.)?stackoverflow\.com/questions/\d+/[^/?#]+/(\d+)(?:[/?#].*)?$`)
)

type LinkAnalyzer struct{}

func NewLinkAnalyzer() *LinkAnalyzer {
	return &LinkAnalyzer{}
}

// AnalyzeLink returns the resource-kind tag stored with a tracked link.
func (a *LinkAnalyzer) AnalyzeLink(url string) models.LinkType {
	if githubRepoRegex.MatchString(url) {
		return models.GitHub
	}

	if soQuestionRegex.MatchString(url) || soShortAnswerRe.MatchString(url) {
		return models.StackOverflow
	}

	return models.Unknown
}

type GitHubIssueRef struct {
	Owner  string
	Repo   string
	Number int64
	IsPull bool
}

func ParseGitHubURL(url string) (owner, repo string, err error) {
	matches := githubRepoRegex.FindStringSubmatch(url)
	if len(matches) < 3 {
		return "", "", &errors.ErrInvalidURL{URL: url}
	}

	return matches[1], trimGitSuffix(matches[2]), nil
}

func ParseGitHubIssueURL(url string) (*GitHubIssueRef, error) {
	matches := githubIssueRegex.FindStringSubmatch(url)
	if len(matches) < 5 {
		return nil, &errors.ErrInvalidURL{URL: url}
	}

	number, err := strconv.ParseInt(matches[4], 10, 64)
	if err != nil {
		return nil, &errors.ErrInvalidURL{URL: url}
	}

	return &GitHubIssueRef{
		Owner:  matches[1],
		Repo:   matches[2],
		Number: number,
		IsPull: matches[3] == "pull",
	}, nil
}

func ParseStackOverflowURL(url string) (questionID int64, err error) {
	matches := soQuestionRegex.FindStringSubmatch(url)
	if len(matches) < 2 {
		return 0, &errors.ErrInvalidURL{URL: url}
	}

	questionID, err = strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, &errors.ErrInvalidURL{URL: url}
	}

	return questionID, nil
}

// ParseStackOverflowAnswerURL accepts both the short share form (/a/{id})
// and the long form (/questions/{q}/{slug}/{id}).
func ParseStackOverflowAnswerURL(url string) (answerID int64, err error) {
	matches := soShortAnswerRe.FindStringSubmatch(url)
	if len(matches) < 2 {
		matches = soLongAnswerRegex.FindStringSubmatch(url)
	}

	if len(matches) < 2 {
		return 0, &errors.ErrInvalidURL{URL: url}
	}

	answerID, err = strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, &errors.ErrInvalidURL{URL: url}
	}

	return answerID, nil
}

func trimGitSuffix(repo string) string {
	if len(repo) > 4 && repo[len(repo)-4:] == ".git" {
		return repo[:len(repo)-4]
	}

	return repo
}
