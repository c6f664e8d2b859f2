package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"shop_back_end/internal/apperrors"
	"shop_back_end/internal/models"
	"shop_back_end/internal/repository"
)

const (
	UsernameMaxLength = 50
	PasswordMinLength = 6

	msgBadCredentials = "用戶名或密碼錯誤"
)

type AuthService struct {
	users  UserStore
	tx     Transactor
	hasher PasswordHasher
	log    *slog.Logger
}

func NewAuthService(users UserStore, tx Transactor, hasher PasswordHasher, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tx: tx, hasher: hasher, log: log}
}

// Register vérifie l'unicité du username puis de l'email, hashe le mot de passe et crée l'utilisateur.
// Erreurs : Invalid, DuplicateUsername, DuplicateEmail ou System.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	s.log.Info("inscription", slog.String("username", username))

	var user *models.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.users.FindByUsername(ctx, username); err == nil {
			return apperrors.DuplicateUsername()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return apperrors.System(err)
		}

		if _, err := s.users.FindByEmail(ctx, email); err == nil {
			return apperrors.DuplicateEmail()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return apperrors.System(err)
		}

		hash, err := s.hasher.Hash(password)
		if err != nil {
			return apperrors.System(err)
		}

		u := &models.User{Username: username, Email: email, Password: hash}
		if err := s.users.Create(ctx, u); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicateUsername):
				return apperrors.DuplicateUsername()
			case errors.Is(err, repository.ErrDuplicateEmail):
				return apperrors.DuplicateEmail()
			}
			return apperrors.System(err)
		}

		user = u
		return nil
	})
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindSystem {
			s.log.Error("❌ inscription échouée", slog.String("username", username), slog.Any("error", err))
		} else {
			s.log.Warn("inscription refusée", slog.String("username", username), slog.String("reason", apperrors.PublicMessage(err)))
		}
		return nil, asAppError(err)
	}

	s.log.Info("✅ utilisateur créé", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// FindByUsername retourne NotFound si l'utilisateur n'existe pas.
func (s *AuthService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("使用者不存在")
	}
	if err != nil {
		return nil, apperrors.System(err)
	}
	return u, nil
}

// VerifyPassword retourne false pour un utilisateur inconnu comme pour un mauvais mot de passe.
// Un hash factice est comparé quand l'utilisateur n'existe pas afin que la durée ne trahisse rien.
func (s *AuthService) VerifyPassword(ctx context.Context, username, password string) bool {
	_, ok, err := s.verify(ctx, username, password)
	if err != nil {
		s.log.Error("❌ lecture utilisateur", slog.String("username", username), slog.Any("error", err))
	}
	return ok
}

// Authenticate : même message Unauthorized pour un utilisateur inconnu ou un mauvais mot de passe.
// Une panne du store est une erreur System, jamais un 401.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user *models.User
	var ok bool
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, ok, err = s.verify(ctx, username, password)
		return err
	})
	if err != nil {
		s.log.Error("❌ connexion impossible", slog.String("username", username), slog.Any("error", err))
		return nil, apperrors.System(err)
	}
	if !ok {
		s.log.Warn("connexion refusée", slog.String("username", username))
		return nil, apperrors.Unauthorized(msgBadCredentials)
	}

	s.log.Info("✅ connexion", slog.Int64("user_id", user.ID), slog.String("username", username))
	return user, nil
}

func (s *AuthService) verify(ctx context.Context, username, password string) (*models.User, bool, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.DummyVerify(password)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !s.hasher.Verify(password, u.Password) {
		return nil, false, nil
	}
	return u, true, nil
}

func validateRegistration(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return apperrors.Invalid("使用者名稱、電子郵件和密碼皆為必填")
	}
	if len([]rune(username)) > UsernameMaxLength {
		return apperrors.Invalid("使用者名稱不能超過 50 個字元")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperrors.Invalid("電子郵件格式不正確")
	}
	if len(password) < PasswordMinLength {
		return apperrors.Invalid("密碼至少需要 6 個字元")
	}
	return nil
}

// asAppError garantit qu'aucune erreur brute ne sort de la couche service.
func asAppError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.System(err)
}
