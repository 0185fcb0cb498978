package notify

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	customerrors "github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/domain/models"
)

const DeliveryIDHeader = "X-Delivery-Id"

type deliveryIDKey struct{}

// WithDeliveryID attaches a correlation id shared by every attempt and
// transport that carries the same message.
func WithDeliveryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deliveryIDKey{}, id)
}

func DeliveryID(ctx context.Context) string {
	if id, ok := ctx.Value(deliveryIDKey{}).(string); ok && id != "" {
		return id
	}

	return uuid.NewString()
}

// encodeLinkUpdate renders the body accepted by POST /updates.
func encodeLinkUpdate(update *models.LinkUpdate, description string) []byte {
	var e jx.Encoder

	e.ObjStart()

	e.FieldStart("id")
	e.Int64(update.ID)

	e.FieldStart("url")
	e.Str(update.URL)

	e.FieldStart("description")
	e.Str(description)

	e.FieldStart("tgChatIds")
	e.ArrStart()

	for _, chatID := range update.TgChatIDs {
		e.Int64(chatID)
	}

	e.ArrEnd()

	e.ObjEnd()

	return e.Bytes()
}

// decodeAPIError reads the bot's structured error body. A body that cannot
// be decoded still yields an APIError carrying the status code.
func decodeAPIError(statusCode int, body []byte) *customerrors.APIError {
	apiErr := &customerrors.APIError{StatusCode: statusCode}

	if len(body) == 0 {
		return apiErr
	}

	d := jx.DecodeBytes(body)

	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error

		switch string(key) {
		case "description":
			apiErr.Description, err = d.Str()
		case "code":
			apiErr.Code, err = d.Str()
		case "exceptionName":
			apiErr.ExceptionName, err = d.Str()
		case "exceptionMessage":
			apiErr.ExceptionMessage, err = d.Str()
		default:
			err = d.Skip()
		}

		if err != nil {
			return errors.Wrapf(err, "поле %s", key)
		}

		return nil
	})
	if err != nil {
		return &customerrors.APIError{StatusCode: statusCode}
	}

	return apiErr
}
