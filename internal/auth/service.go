package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aquastack/aquameter/internal/storage"
)

// Objects and roles referenced by the access policies.
const (
	ObjTariffs    = "tariffs"
	ObjReservoirs = "reservoirs"
	ObjConsumers  = "consumers"
	ObjOperations = "operations"
	ObjTokens     = "tokens"

	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleConsumer = "consumer"
	RoleViewer   = "viewer"
)

type Service struct {
	storage  storage.Storage
	enforcer *casbin.Enforcer
}

func NewService(s storage.Storage) (*Service, error) {
	m, err := model.NewModelFromString(`
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
`)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m, NewAdapter(s))
	if err != nil {
		return nil, err
	}

	// Seed the role policies on an empty rule table. AddPolicy persists
	// through the adapter, so a restart picks them up from storage.
	if policies, _ := e.GetPolicy(); len(policies) == 0 {
		e.AddPolicy(RoleAdmin, "*", "*")

		e.AddPolicy(RoleOperator, ObjTariffs, "read")
		e.AddPolicy(RoleOperator, ObjTariffs, "write")
		e.AddPolicy(RoleOperator, ObjReservoirs, "read")
		e.AddPolicy(RoleOperator, ObjReservoirs, "write")
		e.AddPolicy(RoleOperator, ObjConsumers, "read")
		e.AddPolicy(RoleOperator, ObjConsumers, "write")
		e.AddPolicy(RoleOperator, ObjOperations, "read")
		e.AddPolicy(RoleOperator, ObjOperations, "write")

		e.AddPolicy(RoleConsumer, ObjConsumers, "read")
		e.AddPolicy(RoleConsumer, ObjOperations, "read")
		e.AddPolicy(RoleConsumer, ObjOperations, "write")

		e.AddPolicy(RoleViewer, ObjTariffs, "read")
		e.AddPolicy(RoleViewer, ObjReservoirs, "read")
		e.AddPolicy(RoleViewer, ObjConsumers, "read")
		e.AddPolicy(RoleViewer, ObjOperations, "read")
	}

	return &Service{storage: s, enforcer: e}, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*storage.User, error) {
	u, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}
	return u, nil
}

func (s *Service) Register(ctx context.Context, username, password, role string) (*storage.User, error) {
	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("user already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := storage.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.storage.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.enforcer.AddGroupingPolicy(u.ID, role)

	return &u, nil
}

func (s *Service) CreateToken(ctx context.Context, userID, name, role string, expiresAt *time.Time) (*storage.Token, string, error) {
	rawToken := uuid.New().String() + uuid.New().String()

	hasher := sha256.New()
	hasher.Write([]byte(rawToken))
	tokenHash := hex.EncodeToString(hasher.Sum(nil))

	t := storage.Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		TokenHash: tokenHash,
		Role:      role,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	if err := s.storage.CreateToken(ctx, t); err != nil {
		return nil, "", err
	}

	// Tokens carry their own role so that a token can be scoped narrower
	// than its owning user.
	s.enforcer.AddGroupingPolicy(t.UserID, role)

	return &t, rawToken, nil
}

func (s *Service) ValidateToken(ctx context.Context, rawToken string) (*storage.Token, error) {
	hasher := sha256.New()
	hasher.Write([]byte(rawToken))
	tokenHash := hex.EncodeToString(hasher.Sum(nil))

	t, err := s.storage.GetTokenByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("invalid token")
	}

	if t.ExpiresAt != nil && t.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	go s.storage.UpdateTokenLastUsed(context.Background(), t.ID)

	return t, nil
}

func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	return s.enforcer.Enforce(sub, obj, act)
}
