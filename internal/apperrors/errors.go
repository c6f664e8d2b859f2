// Package apperrors regroupe les erreurs métier renvoyées par les services.
// Les handlers traduisent Kind en statut HTTP sans inspecter les messages.
package apperrors

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindSystem Kind = iota
	KindNotFound
	KindInvalidOperation
	KindDuplicateUsername
	KindDuplicateEmail
	KindUnauthorized
)

// GenericSystemMessage est le seul message exposé pour une erreur système.
const GenericSystemMessage = "系統錯誤，請稍後再試"

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Invalid(msg string) *Error {
	return &Error{Kind: KindInvalidOperation, Message: msg}
}

func DuplicateUsername() *Error {
	return &Error{Kind: KindDuplicateUsername, Message: "使用者名稱已存在"}
}

func DuplicateEmail() *Error {
	return &Error{Kind: KindDuplicateEmail, Message: "電子郵件已存在"}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// System enveloppe une panne technique; la cause reste côté serveur.
func System(cause error) *Error {
	return &Error{Kind: KindSystem, Message: GenericSystemMessage, Err: cause}
}

// KindOf retourne KindSystem pour toute erreur qui n'est pas une *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// PublicMessage retourne le message affichable au client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindSystem {
		return e.Message
	}
	return GenericSystemMessage
}

func IsDuplicate(err error) bool {
	k := KindOf(err)
	return k == KindDuplicateUsername || k == KindDuplicateEmail
}

func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidOperation:
		return http.StatusBadRequest
	case KindDuplicateUsername, KindDuplicateEmail:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
