package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/linktracker/internal/domain/models"
)

func TestEncodeLinkUpdate(t *testing.T) {
	update := &models.LinkUpdate{
		ID:        42,
		URL:       "https://github.com/owner/repo",
		TgChatIDs: []int64{1, 2},
	}

	var decoded struct {
		ID          int64   `json:"id"`
		URL         string  `json:"url"`
		Description string  `json:"description"`
		TgChatIDs   []int64 `json:"tgChatIds"`
	}

	require.NoError(t, json.Unmarshal(encodeLinkUpdate(update, "новый \"коммит\"\n"), &decoded))

	assert.Equal(t, int64(42), decoded.ID)
	assert.Equal(t, "https://github.com/owner/repo", decoded.URL)
	assert.Equal(t, "новый \"коммит\"\n", decoded.Description)
	assert.Equal(t, []int64{1, 2}, decoded.TgChatIDs)
}

func TestEncodeLinkUpdate_NoChats(t *testing.T) {
	body := encodeLinkUpdate(&models.LinkUpdate{ID: 1}, "")

	assert.Contains(t, string(body), `"tgChatIds":[]`)
}

func TestDecodeAPIError(t *testing.T) {
	body := []byte(`{
		"description": "Сервис недоступен",
		"code": "503",
		"exceptionName": "ServiceUnavailable",
		"exceptionMessage": "queue is full",
		"stacktrace": ["a", "b"]
	}`)

	apiErr := decodeAPIError(503, body)

	assert.Equal(t, 503, apiErr.StatusCode)
	assert.Equal(t, "503", apiErr.Code)
	assert.Equal(t, "Сервис недоступен", apiErr.Description)
	assert.Equal(t, "ServiceUnavailable", apiErr.ExceptionName)
	assert.Equal(t, "queue is full", apiErr.ExceptionMessage)
}

func TestDecodeAPIError_NotJSON(t *testing.T) {
	apiErr := decodeAPIError(502, []byte("<html>Bad Gateway</html>"))

	assert.Equal(t, 502, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
}

func TestDeliveryID(t *testing.T) {
	ctx := WithDeliveryID(context.Background(), "fixed")

	assert.Equal(t, "fixed", DeliveryID(ctx))
	assert.NotEmpty(t, DeliveryID(context.Background()))
}

func TestFormatDescription(t *testing.T) {
	update := &models.LinkUpdate{
		Description: "Обновление ответа от carol",
		UpdateInfo: &models.UpdateInfo{
			Title:       "Ответ 1",
			Author:      "carol",
			UpdatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			ContentType: string(models.ChangeAnswer),
		},
	}

	text := formatDescription(update)

	assert.Contains(t, text, "Обновление ответа от carol")
	assert.Contains(t, text, "StackOverflow")
	assert.Contains(t, text, "2024-01-02 03:04:05")
	assert.Equal(t, "plain", formatDescription(&models.LinkUpdate{Description: "plain"}))
}
