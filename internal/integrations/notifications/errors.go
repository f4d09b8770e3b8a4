package notifications

import "errors"

var (
	// ErrPublish возвращается при ошибке отправки уведомления в брокер
	ErrPublish = errors.New("notifications: failed to publish event")

	// ErrEncode возвращается при ошибке сериализации события
	ErrEncode = errors.New("notifications: failed to encode event")
)
