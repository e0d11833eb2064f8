// Package storage содержит ошибки, общие для всех реализаций хранилища.
package storage

import "errors"

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken — учётная запись с таким email уже существует.
	ErrEmailTaken = errors.New("email already exists")
)
