package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/bher20/eimpactmanager/internal/storage"
)

type constError string

func (e constError) Error() string { return string(e) }

const (
	ErrInvalidCredentials = constError("invalid credentials")
	ErrInvalidToken       = constError("invalid token")
	ErrTokenExpired       = constError("token expired")
	ErrUserExists         = constError("user already exists")
	ErrUnknownRole        = constError("unknown role")
)

// Roles.
const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// Protected objects.
const (
	ObjCalculations    = "calculations"
	ObjImplementations = "implementations"
	ObjGoals           = "goals"
	ObjPortfolio       = "portfolio"
	ObjSettings        = "settings"
	ObjTokens          = "tokens"
)

const (
	ActRead  = "read"
	ActWrite = "write"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`

// defaultPolicies grants admins everything; analysts work with their own
// projects and goals; viewers only read.
var defaultPolicies = [][]string{
	{RoleAdmin, "*", "*"},
	{RoleAnalyst, ObjCalculations, ActRead},
	{RoleAnalyst, ObjImplementations, ActRead},
	{RoleAnalyst, ObjImplementations, ActWrite},
	{RoleAnalyst, ObjGoals, ActRead},
	{RoleAnalyst, ObjGoals, ActWrite},
	{RoleAnalyst, ObjPortfolio, ActRead},
	{RoleAnalyst, ObjTokens, ActWrite},
	{RoleViewer, ObjCalculations, ActRead},
	{RoleViewer, ObjImplementations, ActRead},
	{RoleViewer, ObjGoals, ActRead},
	{RoleViewer, ObjPortfolio, ActRead},
}

func validRole(role string) bool {
	return role == RoleAdmin || role == RoleAnalyst || role == RoleViewer
}

type Service struct {
	storage  storage.Storage
	enforcer *casbin.SyncedEnforcer
	now      func() time.Time
}

// NewService builds the RBAC enforcer over the stored policy and seeds the
// default role policies that are missing.
func NewService(s storage.Storage) (*Service, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewSyncedEnforcer(m, NewAdapter(s))
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	for _, p := range defaultPolicies {
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("seed policy %v: %w", p, err)
		}
	}

	return &Service{storage: s, enforcer: e, now: time.Now}, nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*storage.User, error) {
	u, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Register(ctx context.Context, username, email, password, role string) (*storage.User, error) {
	if !validRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := storage.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Notify:       email != "",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if _, err := s.enforcer.AddGroupingPolicy(u.ID, role); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	log.Info().Str("user", username).Str("role", role).Msg("auth: user registered")
	return &u, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil || existing != nil {
		return err
	}
	_, err = s.Register(ctx, username, "", password, RoleAdmin)
	return err
}

// Login checks the credentials and issues a token valid for expiresIn (see
// ParseExpirationDuration).
func (s *Service) Login(ctx context.Context, username, password, expiresIn string) (*storage.Token, string, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	exp, err := ParseExpirationDuration(expiresIn)
	if err != nil {
		return nil, "", err
	}
	return s.CreateToken(ctx, u.ID, "login", u.Role, exp)
}

func (s *Service) CreateToken(ctx context.Context, userID, name, role string, expiresAt *time.Time) (*storage.Token, string, error) {
	rawToken := uuid.New().String() + uuid.New().String()

	t := storage.Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		TokenHash: hashToken(rawToken),
		Role:      role,
		CreatedAt: s.now(),
		ExpiresAt: expiresAt,
	}
	if err := s.storage.CreateToken(ctx, t); err != nil {
		return nil, "", err
	}
	return &t, rawToken, nil
}

func (s *Service) ValidateToken(ctx context.Context, rawToken string) (*storage.Token, error) {
	t, err := s.storage.GetTokenByHash(ctx, hashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrInvalidToken
	}
	if t.ExpiresAt != nil && t.ExpiresAt.Before(s.now()) {
		return nil, ErrTokenExpired
	}

	if err := s.storage.UpdateTokenLastUsed(ctx, t.ID); err != nil {
		log.Warn().Err(err).Str("token", t.ID).Msg("auth: failed to record token use")
	}
	return t, nil
}

func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	return s.enforcer.Enforce(sub, obj, act)
}

// LoadPolicy reloads the policy from storage.
func (s *Service) LoadPolicy() error {
	return s.enforcer.LoadPolicy()
}
