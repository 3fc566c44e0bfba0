package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when the password does not match the tier.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTierDisabled is returned when no password is configured for a tier.
	ErrTierDisabled = errors.New("tier disabled")
)

// Credentials configures one password per privilege tier. Values may be
// plain text or bcrypt hashes; an empty value disables the tier.
type Credentials struct {
	OperatorPassword      string
	SuperOperatorPassword string
}

// Service authenticates control-surface logins and validates sessions.
type Service struct {
	hashes    map[Privilege]string
	jwtConfig *JWTConfig
}

// NewService hashes any plain-text credentials and returns the service.
func NewService(creds Credentials, jwtConfig *JWTConfig) (*Service, error) {
	s := &Service{
		hashes:    make(map[Privilege]string, 2),
		jwtConfig: jwtConfig,
	}
	for priv, secret := range map[Privilege]string{
		PrivilegeOperator:      creds.OperatorPassword,
		PrivilegeSuperOperator: creds.SuperOperatorPassword,
	} {
		if secret == "" {
			continue
		}
		if isBcryptHash(secret) {
			s.hashes[priv] = secret
			continue
		}
		hash, err := HashPassword(secret)
		if err != nil {
			return nil, fmt.Errorf("hash %s password: %w", priv, err)
		}
		s.hashes[priv] = hash
	}
	return s, nil
}

// Login checks password against the tier and returns a session token.
func (s *Service) Login(priv Privilege, password string) (string, error) {
	hash, ok := s.hashes[priv]
	if !ok {
		return "", ErrTierDisabled
	}
	if err := ComparePassword(hash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, priv)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates a session token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// Privilege returns the tier carried by token, or PrivilegeNone when invalid.
func (s *Service) Privilege(token string) Privilege {
	if token == "" {
		return PrivilegeNone
	}
	claims, err := s.ValidateToken(token)
	if err != nil {
		return PrivilegeNone
	}
	return claims.Privilege
}
