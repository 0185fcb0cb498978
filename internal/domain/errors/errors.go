package errors

import (
	"fmt"
)

type ErrLinkNotFound struct {
	URL string
}

func (e *ErrLinkNotFound) Error() string {
	return "ссылка не найдена: " + e.URL
}

func (e *ErrLinkNotFound) Is(target error) bool {
	_, ok := target.(*ErrLinkNotFound)
	return ok
}

type ErrChatNotFound struct {
	ChatID int64
}

func (e *ErrChatNotFound) Error() string {
	return fmt.Sprintf("чат не найден: %d", e.ChatID)
}

func (e *ErrChatNotFound) Is(target error) bool {
	_, ok := target.(*ErrChatNotFound)
	return ok
}

type ErrInvalidURL struct {
	URL string
}

func (e *ErrInvalidURL) Error() string {
	return "неверный формат URL: " + e.URL
}

// ErrClientNotFound is returned by the client registry when no resource
// client supports a URL.
type ErrClientNotFound struct {
	URL string
}

func (e *ErrClientNotFound) Error() string {
	return "не найден клиент для ссылки: " + e.URL
}

func (e *ErrClientNotFound) Is(target error) bool {
	_, ok := target.(*ErrClientNotFound)
	return ok
}

type ErrMalformedPayload struct {
	Source string
	Cause  error
}

func (e *ErrMalformedPayload) Error() string {
	return fmt.Sprintf("некорректный ответ %s: %v", e.Source, e.Cause)
}

func (e *ErrMalformedPayload) Unwrap() error {
	return e.Cause
}

type ErrUnknownDBAccessType struct {
	AccessType string
}

func (e *ErrUnknownDBAccessType) Error() string {
	return fmt.Sprintf("неизвестный тип доступа к базе данных: %s", e.AccessType)
}

type ErrUnknownTransport struct {
	Transport string
}

func (e *ErrUnknownTransport) Error() string {
	return fmt.Sprintf("неизвестный тип транспорта: %s", e.Transport)
}

type ErrBuildSQLQuery struct {
	Operation string
	Cause     error
}

func (e *ErrBuildSQLQuery) Error() string {
	return fmt.Sprintf("ошибка при построении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrBuildSQLQuery) Unwrap() error {
	return e.Cause
}

type ErrSQLExecution struct {
	Operation string
	Cause     error
}

func (e *ErrSQLExecution) Error() string {
	return fmt.Sprintf("ошибка при выполнении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrSQLExecution) Unwrap() error {
	return e.Cause
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}

// APIError is the structured error returned by the bot endpoint.
type APIError struct {
	StatusCode       int
	Code             string
	Description      string
	ExceptionName    string
	ExceptionMessage string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("API error: status %d", e.StatusCode)
	}

	return fmt.Sprintf("API error: status %d, code %s: %s", e.StatusCode, e.Code, e.Description)
}
