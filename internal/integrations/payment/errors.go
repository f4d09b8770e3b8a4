package payment

import "errors"

var (
	// ErrInitialize возвращается при ошибке создания платежной сессии
	ErrInitialize = errors.New("payment: failed to initialize payment")

	// ErrInvalidSignature возвращается при неверной подписи webhook
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")

	// ErrInvalidPayload возвращается при некорректном содержимом webhook
	ErrInvalidPayload = errors.New("payment: invalid webhook payload")

	// ErrNotConfigured возвращается, когда провайдер не настроен
	ErrNotConfigured = errors.New("payment: provider is not configured")
)
