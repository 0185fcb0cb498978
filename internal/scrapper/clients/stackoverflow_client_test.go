package clients_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/central-university-dev/linktracker/internal/domain/models"
	"github.com/central-university-dev/linktracker/internal/scrapper/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackOverflowQuestionClient_LatestTimestamp(t *testing.T) {
	server, _ := jsonServer(t, "/questions/12345", http.StatusOK, `{
		"items": [{
			"question_id": 12345,
			"title": "How to use &quot;context&quot;?",
			"owner": {"display_name": "bob"},
			"creation_date": 1700000000,
			"last_activity_date": 1700000500,
			"last_edit_date": 1700000300
		}],
		"has_more": false
	}`)
	client := clients.NewStackOverflowQuestionClient(testConfig(server.URL), testLogger())

	link := &models.Link{ID: 3, URL: "https://stackoverflow.com/questions/12345/how-to-use-context"}

	events, err := client.FetchChanges(context.Background(), link)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeQuestion, events[0].Kind)
	assert.Equal(t, `How to use "context"?`, events[0].Title)
	assert.True(t, link.LastSeen.Equal(time.Unix(1700000500, 0)))
}

func TestStackOverflowQuestionClient_NoItems(t *testing.T) {
	server, _ := jsonServer(t, "/questions/12345", http.StatusOK, `{"items": []}`)
	client := clients.NewStackOverflowQuestionClient(testConfig(server.URL), testLogger())

	events, err := client.FetchChanges(context.Background(), &models.Link{URL: "https://stackoverflow.com/questions/12345"})

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStackOverflowAnswerClient_MissingEditDate(t *testing.T) {
	server, _ := jsonServer(t, "/answers/98765", http.StatusOK, `{
		"items": [{
			"answer_id": 98765,
			"question_id": 12345,
			"owner": {"display_name": "carol"},
			"creation_date": 1700000000,
			"last_activity_date": 1700000100
		}]
	}`)
	client := clients.NewStackOverflowAnswerClient(testConfig(server.URL), testLogger())

	link := &models.Link{ID: 4, URL: "https://stackoverflow.com/a/98765"}

	events, err := client.FetchChanges(context.Background(), link)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeAnswer, events[0].Kind)
	assert.Equal(t, "carol", events[0].Author)
	assert.Contains(t, events[0].Description, "carol")
	assert.True(t, events[0].UpdatedAt.Equal(time.Unix(1700000100, 0)))

	events, err = client.FetchChanges(context.Background(), link)

	require.NoError(t, err)
	assert.Empty(t, events)
}
