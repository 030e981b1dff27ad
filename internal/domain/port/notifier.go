package port

import (
	"context"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

// Notifier is the toast sink. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification)
}

// Translator resolves user-visible strings. Unknown keys return the key.
type Translator interface {
	T(key string) string
}
