package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tchatsouvenir/bookshop/internal/auth"
	"tchatsouvenir/bookshop/internal/model"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer inputs
	maxPasswordBytes = 72
	resetTokenTTL    = 24 * time.Hour
)

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ProfileUpdate struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type AuthResponse struct {
	Token string         `json:"token"`
	User  model.UserInfo `json:"user"`
}

type AuthService struct {
	users      UserStore
	issuer     *auth.Issuer
	mailer     Mailer
	logger     *zap.Logger
	publicURL  string
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(users UserStore, issuer *auth.Issuer, mailer Mailer, logger *zap.Logger, publicURL string) *AuthService {
	return &AuthService{
		users:      users,
		issuer:     issuer,
		mailer:     mailer,
		logger:     logger,
		publicURL:  strings.TrimRight(publicURL, "/"),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email %q", model.ErrValidation, email)
	}
	return email, nil
}

func (s *AuthService) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", model.ErrValidation, maxPasswordBytes)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *AuthService) respond(u *model.User) (*AuthResponse, error) {
	token, err := s.issuer.Issue(u)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: u.Info()}, nil
}

// emailTaken reports whether email belongs to a user other than exceptID.
func (s *AuthService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.ID != exceptID, nil
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	taken, err := s.emailTaken(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already registered", model.ErrConflict)
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           newID(),
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		Role:         model.RoleUser,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return s.respond(u)
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", model.ErrUnauthorized)

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, model.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errBadCredentials
	}
	if !u.Active {
		return nil, fmt.Errorf("%w: account disabled", model.ErrForbidden)
	}

	now := s.now()
	u.LastLogin = &now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.respond(u)
}

// Verify resolves a bearer token to the current state of its user.
func (s *AuthService) Verify(ctx context.Context, token string) (*model.UserInfo, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID())
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", model.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, fmt.Errorf("%w: account disabled", model.ErrForbidden)
	}
	info := u.Info()
	return &info, nil
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return fmt.Errorf("%w: current password is incorrect", model.ErrValidation)
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.users.Update(ctx, u)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.UserInfo, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Email != "" {
		email, err := normalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		if email != u.Email {
			taken, err := s.emailTaken(ctx, email, u.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, fmt.Errorf("%w: email already in use", model.ErrConflict)
			}
			u.Email = email
		}
	}
	if in.FirstName != "" {
		u.FirstName = strings.TrimSpace(in.FirstName)
	}
	if in.LastName != "" {
		u.LastName = strings.TrimSpace(in.LastName)
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	info := u.Info()
	return &info, nil
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token := newID()
	expiry := s.now().Add(resetTokenTTL)
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	return s.mailer.Send(ctx, Mail{
		To:      u.Email,
		Subject: "Réinitialisation de votre mot de passe Tchat Souvenir",
		Body: fmt.Sprintf("Bonjour %s,\n\nPour choisir un nouveau mot de passe, ouvrez ce lien :\n%s/reset-password?token=%s\n\nCe lien expire dans 24 heures.",
			u.FullName(), s.publicURL, token),
	})
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return fmt.Errorf("%w: missing reset token", model.ErrValidation)
	}
	u, err := s.users.GetByResetToken(ctx, token)
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%w: invalid or expired reset token", model.ErrValidation)
	}
	if err != nil {
		return err
	}
	if u.ResetTokenExpiry == nil || s.now().After(*u.ResetTokenExpiry) {
		return fmt.Errorf("%w: invalid or expired reset token", model.ErrValidation)
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	return s.users.Update(ctx, u)
}
