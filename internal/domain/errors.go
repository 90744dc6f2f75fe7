package domain

import "errors"

var (
	// ErrValidation - некорректный ввод, отклоняется до любых изменений состояния
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	// ErrConflict - коллизия при compare-and-set или нарушение уникального ключа
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlaViolation      = errors.New("sla violation")
	ErrUpstream          = errors.New("upstream error")
	// ErrNoAggregatorAvailable возвращается только когда все кандидаты исчерпаны
	ErrNoAggregatorAvailable = errors.New("no aggregator available")
	ErrUnauthorized          = errors.New("unauthorized")
)
