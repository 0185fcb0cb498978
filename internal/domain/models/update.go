package models

import "time"

type UpdateInfo struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ContentType string    `json:"contentType"`
}

// LinkUpdate is the notification handed to a transport.
type LinkUpdate struct {
	ID          int64       `json:"id"`
	URL         string      `json:"url"`
	Description string      `json:"description"`
	TgChatIDs   []int64     `json:"tgChatIds"`
	UpdateInfo  *UpdateInfo `json:"updateInfo,omitempty"`
}

func NewLinkUpdate(change *ChangeEvent, chatIDs []int64) *LinkUpdate {
	return &LinkUpdate{
		ID:          change.LinkID,
		URL:         change.URL,
		Description: change.Description,
		TgChatIDs:   chatIDs,
		UpdateInfo: &UpdateInfo{
			Title:       change.Title,
			Author:      change.Author,
			UpdatedAt:   change.UpdatedAt,
			ContentType: string(change.Kind),
		},
	}
}

// WithChats returns a copy of u addressed to chatIDs.
func (u *LinkUpdate) WithChats(chatIDs []int64) *LinkUpdate {
	clone := *u
	clone.TgChatIDs = chatIDs

	return &clone
}
