package clients

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/central-university-dev/linktracker/internal/common"
	"github.com/central-university-dev/linktracker/internal/common/httputil"
	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

const stackOverflowSource = "StackOverflow API"

type stackOverflowAPI struct {
	client  *resty.Client
	key     string
	baseURL string
	logger  *slog.Logger
}

func newStackOverflowAPI(cfg *config.Config, logger *slog.Logger) stackOverflowAPI {
	baseURL := cfg.StackOverflowBaseURL
	if baseURL == "" {
		baseURL = "https://api.stackexchange.com/2.3"
	}

	return stackOverflowAPI{
		client:  httputil.CreateHTTPClient(cfg, logger, "stackoverflow"),
		key:     cfg.StackOverflowAPIToken,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (a stackOverflowAPI) request() *resty.Request {
	request := a.client.R().SetQueryParam("site", "stackoverflow")

	if a.key != "" {
		request.SetQueryParam("key", a.key)
	}

	return request
}

type stackOverflowOwner struct {
	DisplayName string `json:"display_name"`
}

type stackOverflowQuestion struct {
	QuestionID       int64              `json:"question_id"`
	Title            string             `json:"title"`
	Owner            stackOverflowOwner `json:"owner"`
	CreationDate     int64              `json:"creation_date"`
	LastEditDate     int64              `json:"last_edit_date"`
	LastActivityDate int64              `json:"last_activity_date"`
}

type stackOverflowAnswer struct {
	AnswerID         int64              `json:"answer_id"`
	QuestionID       int64              `json:"question_id"`
	Owner            stackOverflowOwner `json:"owner"`
	CreationDate     int64              `json:"creation_date"`
	LastEditDate     int64              `json:"last_edit_date"`
	LastActivityDate int64              `json:"last_activity_date"`
}

type stackOverflowResponse[T any] struct {
	Items []T `json:"items"`
}

// StackOverflowQuestionClient tracks question activity, which includes new
// answers and comments through last_activity_date.
type StackOverflowQuestionClient struct {
	api stackOverflowAPI
}

func NewStackOverflowQuestionClient(cfg *config.Config, logger *slog.Logger) *StackOverflowQuestionClient {
	return &StackOverflowQuestionClient{api: newStackOverflowAPI(cfg, logger)}
}

func (c *StackOverflowQuestionClient) Name() string {
	return "stackoverflow_question"
}

func (c *StackOverflowQuestionClient) Supports(url string) bool {
	_, err := common.ParseStackOverflowURL(url)
	return err == nil
}

func (c *StackOverflowQuestionClient) FetchChanges(ctx context.Context, link *models.Link) ([]models.ChangeEvent, error) {
	questionID, err := common.ParseStackOverflowURL(link.URL)
	if err != nil {
		c.api.logger.Warn("Не удалось разобрать ссылку на вопрос",
			"linkID", link.ID,
			"url", link.URL,
			"error", err,
		)

		return []models.ChangeEvent{}, nil
	}

	var response stackOverflowResponse[stackOverflowQuestion]

	url := fmt.Sprintf("%s/questions/%d", c.api.baseURL, questionID)
	if err := getJSON(ctx, c.api.request(), url, stackOverflowSource, models.StackOverflow, &response); err != nil {
		return []models.ChangeEvent{}, err
	}

	if len(response.Items) == 0 {
		c.api.logger.Warn("Вопрос не найден", "linkID", link.ID, "questionID", questionID)
		return []models.ChangeEvent{}, nil
	}

	question := response.Items[0]
	title := html.UnescapeString(question.Title)

	event := models.ChangeEvent{
		Kind:        models.ChangeQuestion,
		Title:       title,
		Author:      question.Owner.DisplayName,
		Description: fmt.Sprintf("Обновление вопроса «%s» по ссылке %s", title, link.URL),
	}

	return detect(link, event,
		unixTime(question.CreationDate),
		unixTime(question.LastEditDate),
		unixTime(question.LastActivityDate),
	), nil
}

// StackOverflowAnswerClient tracks a single answer.
type StackOverflowAnswerClient struct {
	api stackOverflowAPI
}

func NewStackOverflowAnswerClient(cfg *config.Config, logger *slog.Logger) *StackOverflowAnswerClient {
	return &StackOverflowAnswerClient{api: newStackOverflowAPI(cfg, logger)}
}

func (c *StackOverflowAnswerClient) Name() string {
	return "stackoverflow_answer"
}

func (c *StackOverflowAnswerClient) Supports(url string) bool {
	_, err := common.ParseStackOverflowAnswerURL(url)
	return err == nil
}

func (c *StackOverflowAnswerClient) FetchChanges(ctx context.Context, link *models.Link) ([]models.ChangeEvent, error) {
	answerID, err := common.ParseStackOverflowAnswerURL(link.URL)
	if err != nil {
		c.api.logger.Warn("Не удалось разобрать ссылку на ответ",
			"linkID", link.ID,
			"url", link.URL,
			"error", err,
		)

		return []models.ChangeEvent{}, nil
	}

	var response stackOverflowResponse[stackOverflowAnswer]

	url := fmt.Sprintf("%s/answers/%d", c.api.baseURL, answerID)
	if err := getJSON(ctx, c.api.request(), url, stackOverflowSource, models.StackOverflow, &response); err != nil {
		return []models.ChangeEvent{}, err
	}

	if len(response.Items) == 0 {
		c.api.logger.Warn("Ответ не найден", "linkID", link.ID, "answerID", answerID)
		return []models.ChangeEvent{}, nil
	}

	answer := response.Items[0]

	event := models.ChangeEvent{
		Kind:        models.ChangeAnswer,
		Title:       fmt.Sprintf("Ответ %d", answer.AnswerID),
		Author:      answer.Owner.DisplayName,
		Description: fmt.Sprintf("Обновление ответа от %s по ссылке %s", answer.Owner.DisplayName, link.URL),
	}

	return detect(link, event,
		unixTime(answer.CreationDate),
		unixTime(answer.LastEditDate),
		unixTime(answer.LastActivityDate),
	), nil
}
