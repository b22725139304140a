// Package storage содержит общие ошибки слоя хранения.
package storage

import "errors"

var (
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrConflict нарушено ограничение уникальности или целостности.
	ErrConflict = errors.New("conflict")
)
