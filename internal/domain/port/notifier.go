package port

import "context"

// Notifier отправляет текстовые уведомления о прогонах
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
