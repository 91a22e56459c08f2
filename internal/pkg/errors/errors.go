package errors

import "errors"

// Общие ошибки приложения. Сервисы оборачивают их через fmt.Errorf("%w: ..."),
// а хендлеры сопоставляют с HTTP-статусами через errors.Is.
var (
	// ErrNotFound используется, когда запись или ресурс не найдены
	// (неизвестная головоломка, нет головоломки на сегодня).
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется при отсутствии или недействительности идентификации.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных
	// (нет обязательного поля, сложность вне диапазона 1–5).
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния: повторная отправка ответа,
	// дублирующая дата публикации, удаление головоломки, на которую ссылаются решения.
	ErrConflict = errors.New("resource state conflict")
)
