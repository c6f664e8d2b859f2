// Package repository contient les stores PostgreSQL (gorm) : utilisateurs, catalogue et paniers.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("enregistrement introuvable")
	ErrCartExists        = errors.New("un panier existe déjà pour cet utilisateur")
	ErrDuplicateUsername = errors.New("nom d'utilisateur déjà utilisé")
	ErrDuplicateEmail    = errors.New("email déjà utilisé")
)

const (
	pgUniqueViolation = "23505"

	constraintUsersUsername = "uq_users_username"
	constraintUsersEmail    = "uq_users_email"
)

type txKey struct{}

// TxManager ouvre une transaction gorm et la transporte dans le contexte.
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTransaction exécute fn dans une transaction. Un appel imbriqué réutilise la transaction en cours.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn retourne la transaction du contexte, sinon le pool.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// uniqueViolation retourne le nom de la contrainte violée, ou "" si err n'est pas une 23505.
func uniqueViolation(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
