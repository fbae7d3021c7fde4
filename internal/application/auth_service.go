package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/config"
	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
	"github.com/oksasatya/go-ecommerce-auth/pkg/apperror"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

const (
	MsgEmailTaken           = "El email ya está registrado"
	MsgRegistered           = "Usuario registrado exitosamente"
	MsgInvalidCredentials   = "Email o contraseña incorrectos"
	MsgAccountDisabled      = "Tu cuenta ha sido desactivada"
	MsgLoggedIn             = "Login exitoso"
	MsgInvalidUser          = "Usuario no válido"
	MsgInvalidRefresh       = "Refresh token inválido o expirado"
	MsgLoggedOut            = "Sesión cerrada exitosamente"
	MsgForgotPassword       = "Si el email existe, recibirás instrucciones para resetear tu contraseña"
	MsgInvalidResetToken    = "Token inválido o expirado"
	MsgPasswordUpdated      = "Contraseña actualizada exitosamente"
	MsgUserNotFound         = "Usuario no encontrado"
	MsgWrongPassword        = "Contraseña actual incorrecta"
	MsgPasswordTooLong      = "La contraseña no puede superar 72 bytes"
	msgRegisterFailed       = "Error al registrar usuario"
	msgLoginFailed          = "Error al iniciar sesión"
	msgRefreshFailed        = "Error al renovar token"
	msgLogoutFailed         = "Error al cerrar sesión"
	msgForgotFailed         = "Error al procesar solicitud"
	msgResetFailed          = "Error al resetear contraseña"
	msgProfileFailed        = "Error al obtener datos del usuario"
	msgChangePasswordFailed = "Error al cambiar contraseña"
)

// TokenDenylist is satisfied by *cache.TokenDenylist.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserIndexer pushes a user document into the search index.
type UserIndexer interface {
	IndexUser(ctx context.Context, u *entity.User) error
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User               SessionUser
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type RefreshResult struct {
	AccessToken       string
	AccessTokenExpiry time.Time
}

// ForgotPasswordResult carries the secret back to the transport layer, which
// decides whether it may be echoed. ResetToken is empty when the email is unknown.
type ForgotPasswordResult struct {
	Message    string
	ResetToken string
	ResetURL   string
	ExpiresAt  time.Time
}

type AuthService struct {
	Repo     repo.UserRepository
	Hasher   helpers.PasswordHasher
	JWT      *helpers.JWTManager
	Resets   *ResetTokenManager
	Denylist TokenDenylist
	Events   EventPublisher
	Indexer  UserIndexer
	Config   *config.Config
	Logger   *logrus.Logger

	now       func() time.Time
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(r repo.UserRepository, hasher helpers.PasswordHasher, jwt *helpers.JWTManager, resets *ResetTokenManager, cfg *config.Config, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Repo:   r,
		Hasher: hasher,
		JWT:    jwt,
		Resets: resets,
		Config: cfg,
		Logger: logger,
		now:    time.Now,
	}
}

// burnCompare spends one bcrypt verification so an unknown email costs the
// same as a wrong password.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	_ = s.Hasher.Verify(password, s.dummyHash)
}

// hashPassword reports over-long input as a client error; anything else is internal.
func (s *AuthService) hashPassword(plain, failMsg string) (string, error) {
	hash, err := s.Hasher.Hash(plain)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return "", apperror.BadRequest(MsgPasswordTooLong)
	}
	if err != nil {
		return "", apperror.Internal(failMsg, err)
	}
	return hash, nil
}

func (s *AuthService) issueTokens(u *entity.User) (*AuthResult, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, u.Email, u.Role.String())
	if err != nil {
		return nil, err
	}
	refresh, rexp, _, err := s.JWT.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:               NewSessionUser(u),
		AccessToken:        access,
		AccessTokenExpiry:  aexp,
		RefreshToken:       refresh,
		RefreshTokenExpiry: rexp,
	}, nil
}

func (s *AuthService) indexUser(ctx context.Context, u *entity.User) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.IndexUser(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("index user failed")
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := entity.NormalizeEmail(in.Email)
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict(MsgEmailTaken)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.Internal(msgRegisterFailed, err)
	}

	hash, err := s.hashPassword(in.Password, msgRegisterFailed)
	if err != nil {
		return nil, err
	}
	u := entity.NewUser(in.Name, email, hash)
	if err := s.Repo.Create(ctx, u); err != nil {
		// a concurrent registration can still win between the check and the insert
		if errors.Is(err, repo.ErrEmailTaken) {
			return nil, apperror.Conflict(MsgEmailTaken)
		}
		return nil, apperror.Internal(msgRegisterFailed, err)
	}

	res, err := s.issueTokens(u)
	if err != nil {
		return nil, apperror.Internal(msgRegisterFailed, err)
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("user registered")
	}
	s.indexUser(ctx, u)
	publishEvent(ctx, s.Events, s.Logger, EventUserRegistered, u.ID, u.Email)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.Repo.GetByEmail(ctx, in.Email, repo.SelectPassword)
	if errors.Is(err, repo.ErrNotFound) {
		s.burnCompare(in.Password)
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, apperror.Internal(msgLoginFailed, err)
	}
	if !s.Hasher.Verify(in.Password, u.PasswordHash) {
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}
	if !u.IsActive {
		return nil, apperror.Forbidden(MsgAccountDisabled)
	}

	now := s.now()
	if err := s.Repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.Unauthorized(MsgInvalidCredentials)
		}
		return nil, apperror.Internal(msgLoginFailed, err)
	}
	u.LastLoginAt = &now

	res, err := s.issueTokens(u)
	if err != nil {
		return nil, apperror.Internal(msgLoginFailed, err)
	}
	publishEvent(ctx, s.Events, s.Logger, EventUserLoggedIn, u.ID, u.Email)
	return res, nil
}

// Refresh issues a new access token. Refresh tokens are not rotated; they stop
// working on logout (denylisted jti) and when the password changes after issue.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized(MsgInvalidRefresh)
	}

	if s.Denylist != nil {
		revoked, dErr := s.Denylist.IsRevoked(ctx, claims.ID)
		if dErr != nil && s.Logger != nil {
			s.Logger.WithError(dErr).WithField("user_id", claims.UserID).Warn("denylist lookup failed")
		}
		if revoked {
			return nil, apperror.Unauthorized(MsgInvalidRefresh)
		}
	}

	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.Unauthorized(MsgInvalidUser)
	}
	if err != nil {
		return nil, apperror.Internal(msgRefreshFailed, err)
	}
	if !u.IsActive {
		return nil, apperror.Unauthorized(MsgInvalidUser)
	}
	if u.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(u.PasswordChangedAt.Truncate(time.Second)) {
		return nil, apperror.Unauthorized(MsgInvalidRefresh)
	}

	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, u.Email, u.Role.String())
	if err != nil {
		return nil, apperror.Internal(msgRefreshFailed, err)
	}
	return &RefreshResult{AccessToken: access, AccessTokenExpiry: aexp}, nil
}

// Logout revokes the refresh token until it would have expired anyway.
// Tokens that no longer verify are already useless, so they are accepted silently.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil || s.Denylist == nil {
		return nil
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := s.Denylist.Revoke(ctx, claims.ID, exp); err != nil {
		return apperror.Internal(msgLogoutFailed, err)
	}
	return nil
}

// ForgotPassword answers identically whether or not the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error) {
	res := &ForgotPasswordResult{Message: MsgForgotPassword}

	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return nil, apperror.Internal(msgForgotFailed, err)
	}

	secret, exp, err := s.Resets.Issue(ctx, u)
	if err != nil {
		return nil, apperror.Internal(msgForgotFailed, err)
	}
	res.ResetToken = secret
	res.ExpiresAt = exp
	if s.Config != nil {
		res.ResetURL = s.Config.ResetPasswordURL(secret)
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("password reset requested")
	}
	publishEvent(ctx, s.Events, s.Logger, EventPasswordResetRequested, u.ID, u.Email)
	return res, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, secret, newPassword string) error {
	u, err := s.Resets.Consume(ctx, secret)
	if errors.Is(err, ErrInvalidOrExpiredToken) {
		return apperror.BadRequest(MsgInvalidResetToken)
	}
	if err != nil {
		return apperror.Internal(msgResetFailed, err)
	}

	hash, err := s.hashPassword(newPassword, msgResetFailed)
	if err != nil {
		return err
	}
	err = s.Repo.ConsumeResetToken(ctx, u.ID, s.Resets.Hash(secret), hash, s.now())
	if errors.Is(err, repo.ErrResetTokenMismatch) || errors.Is(err, repo.ErrNotFound) {
		return apperror.BadRequest(MsgInvalidResetToken)
	}
	if err != nil {
		return apperror.Internal(msgResetFailed, err)
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("password reset")
	}
	publishEvent(ctx, s.Events, s.Logger, EventPasswordReset, u.ID, u.Email)
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, apperror.Internal(msgProfileFailed, err)
	}
	p := NewUserProfile(u)
	return &p, nil
}

// ChangePassword leaves the stored hash untouched unless currentPassword verifies.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.Repo.GetByID(ctx, userID, repo.SelectPassword)
	if errors.Is(err, repo.ErrNotFound) {
		return apperror.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return apperror.Internal(msgChangePasswordFailed, err)
	}
	if !s.Hasher.Verify(currentPassword, u.PasswordHash) {
		return apperror.Unauthorized(MsgWrongPassword)
	}

	hash, err := s.hashPassword(newPassword, msgChangePasswordFailed)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash, s.now()); err != nil {
		return apperror.Internal(msgChangePasswordFailed, err)
	}
	publishEvent(ctx, s.Events, s.Logger, EventPasswordChanged, u.ID, u.Email)
	return nil
}
