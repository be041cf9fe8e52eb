// Package repository хранит историю запусков решателя.
package repository

import (
	"context"
	"time"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
)

// Status итог запуска
type Status string

const (
	StatusSolved       Status = "solved"
	StatusUnsolvable   Status = "unsolvable"
	StatusInconclusive Status = "inconclusive"
	StatusFailed       Status = "failed"
)

// StatusOf выводит статус из ошибки решения
func StatusOf(err error) Status {
	if err == nil {
		return StatusSolved
	}
	switch apperror.Code(err) {
	case apperror.CodeUnsolvableInstance:
		return StatusUnsolvable
	case apperror.CodeOracleInconclusive:
		return StatusInconclusive
	default:
		return StatusFailed
	}
}

// Run запись об одном запуске
type Run struct {
	ID           string
	InputPath    string
	NetworkHash  string
	NodeCount    int
	LinkCount    int
	TargetFlow   int64
	Ceiling      int64
	Cost         *int64 // nil, если решение не найдено
	Blocked      []domain.LinkKey
	Iterations   int
	Duration     time.Duration
	Oracle       string
	Cached       bool
	Status       Status
	ErrorCode    string
	ErrorMessage string
	CreatedAt    time.Time
}

// Limits для List
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// RunRepository хранилище истории запусков
type RunRepository interface {
	// Save сохраняет запуск; пустой ID заполняется новым UUID
	Save(ctx context.Context, run *Run) error
	// Get возвращает запуск или ошибку NOT_FOUND
	Get(ctx context.Context, id string) (*Run, error)
	// List возвращает последние запуски, новые первыми
	List(ctx context.Context, limit int) ([]*Run, error)
}

// ErrRunNotFound ошибка для отсутствующего запуска
func ErrRunNotFound(id string) error {
	return apperror.New(apperror.CodeNotFound, "solve run not found").
		WithField("id").
		WithDetails("id", id)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
