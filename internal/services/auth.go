package services

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/apperr"
	"foodhub/internal/auth"
	"foodhub/internal/mailer"
	"foodhub/internal/models"
	"foodhub/internal/store"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgAccountLocked      = "Account is temporarily locked due to too many failed login attempts. Try again later."
	msgAccountDisabled    = "Account is deactivated"
	msgInvalidRefresh     = "Invalid or expired refresh token"
	msgWeakPassword       = "Password must be at least 8 characters and contain upper case, lower case and a digit"
)

type AuthConfig struct {
	Lockout               store.LockoutPolicy
	AllowPrivilegedSignup bool
	EmailVerificationTTL  time.Duration
	PublicBaseURL         string
}

type AuthService struct {
	users  store.UserStore
	tokens *auth.TokenService
	hasher auth.PasswordHasher
	mail   mailer.Mailer
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuthService(users store.UserStore, tokens *auth.TokenService, hasher auth.PasswordHasher, mail mailer.Mailer, cfg AuthConfig) *AuthService {
	if cfg.Lockout.Threshold <= 0 {
		cfg.Lockout.Threshold = 5
	}
	if cfg.Lockout.Duration <= 0 {
		cfg.Lockout.Duration = 2 * time.Hour
	}
	if cfg.EmailVerificationTTL <= 0 {
		cfg.EmailVerificationTTL = 24 * time.Hour
	}
	if mail == nil {
		mail = mailer.DevMailer{}
	}
	return &AuthService{users: users, tokens: tokens, hasher: hasher, mail: mail, cfg: cfg, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=admin staff user"`
}

type AuthResult struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken,omitempty"`
	User         models.PublicUser `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	if err := validate.Struct(in); err != nil {
		return nil, ValidationError(err)
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if in.Role != models.RoleUser && !s.cfg.AllowPrivilegedSignup {
		return nil, apperr.Forbidden("Cannot register with an elevated role")
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		return nil, apperr.Validation(msgWeakPassword)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internal("AUTH", "hash password", err)
	}

	now := s.now()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		CartData:     models.CartData{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	access, refresh, record, err := s.issuePair(*user, now)
	if err != nil {
		return nil, err
	}
	user.RefreshTokens = []models.RefreshToken{record}
	user.LastLogin = &now

	verifyToken, err := auth.RandomToken()
	if err != nil {
		return nil, internal("AUTH", "generate verification token", err)
	}
	expires := now.Add(s.cfg.EmailVerificationTTL)
	user.EmailVerificationHash = auth.HashToken(verifyToken)
	user.EmailVerificationExpires = &expires

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, internal("AUTH", "create user", err)
	}
	log.Println("[AUTH] [INFO] user registered:", user.ID.Hex())

	s.sendVerification(ctx, *user, verifyToken)

	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: user.Public()}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, internal("AUTH", "find user", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		log.Println("[AUTH] [WARN] login attempt on locked account:", user.ID.Hex())
		return nil, apperr.Locked(msgAccountLocked)
	}
	if !user.IsActive {
		return nil, apperr.Forbidden(msgAccountDisabled)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		updated, err := s.users.RecordFailedLogin(ctx, user.ID, s.cfg.Lockout, now)
		if err != nil {
			return nil, internal("AUTH", "record failed login", err)
		}
		if updated.IsLocked(now) {
			log.Println("[AUTH] [WARN] account locked after failed attempts:", user.ID.Hex())
		}
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	access, refresh, record, err := s.issuePair(*user, now)
	if err != nil {
		return nil, err
	}
	if err := s.users.RecordLogin(ctx, user.ID, record, now); err != nil {
		return nil, internal("AUTH", "record login", err)
	}

	log.Println("[AUTH] [INFO] user login succeeded:", user.ID.Hex())
	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: user.Public()}, nil
}

// Refresh exchanges a stored refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperr.Validation("Refresh token is required")
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized(msgInvalidRefresh)
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized(msgInvalidRefresh)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("User not found")
	}
	if err != nil {
		return nil, internal("AUTH", "find user", err)
	}

	now := s.now()
	if !user.HasUsableRefreshToken(auth.HashToken(refreshToken), now) {
		return nil, apperr.Unauthorized(msgInvalidRefresh)
	}
	if !user.IsActive {
		return nil, apperr.Forbidden(msgAccountDisabled)
	}

	if err := s.users.PruneRefreshTokens(ctx, user.ID, now); err != nil {
		return nil, internal("AUTH", "prune refresh tokens", err)
	}

	access, err := s.tokens.IssueAccessToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, internal("AUTH", "issue access token", err)
	}
	return &AuthResult{AccessToken: access, User: user.Public()}, nil
}

// Logout deactivates one refresh token. Unknown users and tokens are not
// errors.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	err = s.users.DeactivateRefreshToken(ctx, id, auth.HashToken(refreshToken))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return internal("AUTH", "deactivate refresh token", err)
	}
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	err = s.users.DeactivateAllRefreshTokens(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return internal("AUTH", "deactivate all refresh tokens", err)
	}
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation("Verification token is required")
	}
	user, err := s.users.MarkEmailVerified(ctx, auth.HashToken(token), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validation("Invalid or expired verification token")
	}
	if err != nil {
		return internal("AUTH", "mark email verified", err)
	}
	log.Println("[AUTH] [INFO] email verified:", user.ID.Hex())
	return nil
}

// ResendVerification issues a fresh verification token, replacing any
// pending one.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return apperr.Conflict("Email already verified")
	}

	token, err := auth.RandomToken()
	if err != nil {
		return internal("AUTH", "generate verification token", err)
	}
	expires := s.now().Add(s.cfg.EmailVerificationTTL)
	if err := s.users.SetEmailVerification(ctx, user.ID, auth.HashToken(token), expires); err != nil {
		return internal("AUTH", "set email verification", err)
	}
	s.sendVerification(ctx, *user, token)
	return nil
}

// SetActive enables or disables an account. Disabling also ends every
// session of that user.
func (s *AuthService) SetActive(ctx context.Context, userID string, active bool) error {
	id, err := parseObjectID(userID, "userId")
	if err != nil {
		return err
	}
	err = s.users.SetUserActive(ctx, id, active, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return internal("AUTH", "set user active", err)
	}
	log.Printf("[AUTH] [INFO] user %s active=%t", id.Hex(), active)
	return nil
}

func (s *AuthService) findUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.NotFound("User not found")
	}
	user, err := s.users.FindUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, internal("AUTH", "find user", err)
	}
	return user, nil
}

func (s *AuthService) issuePair(user models.User, now time.Time) (string, string, models.RefreshToken, error) {
	access, err := s.tokens.IssueAccessToken(user.ID.Hex(), user.Role)
	if err != nil {
		return "", "", models.RefreshToken{}, internal("AUTH", "issue access token", err)
	}
	refresh, expiresAt, err := s.tokens.IssueRefreshToken(user.ID.Hex())
	if err != nil {
		return "", "", models.RefreshToken{}, internal("AUTH", "issue refresh token", err)
	}
	record := models.RefreshToken{
		TokenHash: auth.HashToken(refresh),
		CreatedAt: now,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	return access, refresh, record, nil
}

// sendVerification failures are logged; the account stays usable.
func (s *AuthService) sendVerification(ctx context.Context, user models.User, token string) {
	link := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/user/verify-email?token=" + url.QueryEscape(token)
	if err := s.mail.Send(ctx, mailer.VerificationMessage(user.Name, user.Email, link)); err != nil {
		log.Println("[AUTH] [WARN] verification email failed:", err)
	}
}
