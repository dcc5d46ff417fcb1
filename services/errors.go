package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден. Покрывает и записи, скрытые фильтром видимости:
	// снаружи они неотличимы от несуществующих, чтобы не раскрывать
	// существование чужих зональных данных.
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed         = errors.New("validation failed")
	ErrPasswordTooShort         = errors.New("password is too short")
	ErrZoneRequired             = errors.New("a zone is required for this user type or tournament type")
	ErrLevelRequired            = errors.New("a referee level is required for referees")
	ErrInvalidLevel             = errors.New("invalid referee level")
	ErrInvalidUserType          = errors.New("invalid user type")
	ErrAvailabilityClosed       = errors.New("tournament is not open for availability declarations")
	ErrAvailabilityDeadlinePast = errors.New("availability deadline has passed")
	ErrNotAReferee              = errors.New("only referees can declare availability")

	// Ошибки конфликтов
	ErrUserEmailConflict     = errors.New("email address is already in use")
	ErrZoneCodeConflict      = errors.New("zone code is already in use")
	ErrTypeNameConflict      = errors.New("tournament type name is already in use")
	ErrAvailabilityDuplicate = errors.New("availability already submitted for this tournament")
	ErrResourceInUse         = errors.New("resource is referenced by other records")

	// Гонка на запись, проигранная на коммите (уникальный индекс или
	// транзакционная перепроверка вместимости).
	ErrConflictOnWrite = errors.New("write conflict detected, please retry")

	// Ошибки турниров
	ErrTournamentInvalidDateRange = errors.New("tournament end date must not be before start date")
	ErrTournamentInvalidDeadline  = errors.New("availability deadline must not be after the start date")
	ErrTournamentInvalidStatus    = errors.New("invalid tournament status provided")
)
