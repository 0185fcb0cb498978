package notify

import (
	"fmt"

	"github.com/central-university-dev/linktracker/internal/domain/models"
)

const timeLayout = "2006-01-02 15:04:05"

func formatDescription(update *models.LinkUpdate) string {
	description := update.Description

	if update.UpdateInfo == nil {
		return description
	}

	info := update.UpdateInfo

	var header, titleLabel, authorLabel string

	switch models.ChangeKind(info.ContentType) {
	case models.ChangeRepository, models.ChangeIssue, models.ChangePullRequest:
		header, titleLabel, authorLabel = "🔷 GitHub обновление 🔷", "Название", "Автор"
	case models.ChangeQuestion, models.ChangeAnswer:
		header, titleLabel, authorLabel = "🔶 StackOverflow обновление 🔶", "Тема", "Пользователь"
	default:
		header, titleLabel, authorLabel = "🔹 Обновление ресурса 🔹", "Заголовок", "Автор"
	}

	return fmt.Sprintf("%s\n\n%s\n"+
		"📎 %s: %s\n"+
		"👤 %s: %s\n"+
		"⏱️ Время: %s\n"+
		"📄 Тип: %s",
		description, header,
		titleLabel, info.Title,
		authorLabel, info.Author,
		info.UpdatedAt.UTC().Format(timeLayout),
		info.ContentType)
}
