package handler

import (
	"context"

	"admin-dashboard/internal/client"
)

// Consumer-side interfaces defined by handlers
// Each interface contains only the methods needed by the specific handler

// AuthHandler interfaces
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*client.AuthResult, error)
	VerifyOTP(ctx context.Context, email, code string) (*client.AuthResult, error)
	Logout(ctx context.Context, token string) error
}

type CSRFTokenManager interface {
	GetOrCreateToken(userID string) (string, error)
	Revoke(userID string)
}

type RateLimitObserver interface {
	ObserveRateLimited(scope string)
}

// PageHandler interfaces
type AdminAPI interface {
	ListUsers(ctx context.Context, token string, p client.ListParams) (*client.Page[client.User], error)
	ListProducts(ctx context.Context, token string, p client.ListParams) (*client.Page[client.Product], error)
	ListAllergies(ctx context.Context, token string, p client.ListParams) (*client.Page[client.Allergy], error)
	ListReports(ctx context.Context, token string, p client.ListParams) (*client.Page[client.Report], error)
	Analytics(ctx context.Context, token string) (*client.Analytics, error)
}

// ModerationHandler interfaces
type ModerationAPI interface {
	ResolveReport(ctx context.Context, token, id, note string) error
	UpdateUserRole(ctx context.Context, token, id, role string) error
}
