package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shop_back_end/internal/config"
)

// ErrMalformedToken : le jeton ne peut pas être lu (format ou signature), distinct d'un jeton expiré.
var ErrMalformedToken = errors.New("jeton JWT illisible")

const DefaultTokenExpiration = 24 * time.Hour

// Claims : subject = username, plus l'id utilisateur.
type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService signe et vérifie les jetons HS256. La clé et la durée sont fixées à la construction.
type TokenService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if err := config.ValidateJWTSecret(cfg.Secret); err != nil {
		return nil, err
	}

	exp := cfg.Expiration
	if exp <= 0 {
		exp = DefaultTokenExpiration
	}

	return &TokenService{
		secret:     []byte(cfg.Secret),
		expiration: exp,
		now:        time.Now,
	}, nil
}

func (s *TokenService) Expiration() time.Duration {
	return s.expiration
}

// Issue crée un jeton pour username valable pendant la durée configurée.
func (s *TokenService) Issue(username string, userID int64) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signature du jeton: %w", err)
	}
	return signed, nil
}

// Validate vérifie signature, expiration et subject. Toute erreur donne false.
func (s *TokenService) Validate(tokenString, expectedUsername string) bool {
	_, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(expectedUsername),
	)
	return err == nil
}

func (s *TokenService) ExtractUsername(tokenString string) (string, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrMalformedToken
	}
	return claims.Subject, nil
}

func (s *TokenService) ExtractUserID(tokenString string) (int64, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// parseClaims vérifie la signature mais pas l'expiration : Validate s'en charge.
func (s *TokenService) parseClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

func (s *TokenService) keyFunc(*jwt.Token) (any, error) {
	return s.secret, nil
}
