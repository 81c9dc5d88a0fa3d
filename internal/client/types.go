package client

import "time"

// AuthResult is the answer to a login or OTP step. Token is empty while a
// second factor is still pending.
type AuthResult struct {
	Token       string `json:"token"`
	RequiresOTP bool   `json:"requires_otp"`
	Message     string `json:"message,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Barcode   string    `json:"barcode"`
	Status    string    `json:"status"`
	Allergens []string  `json:"allergens"`
	CreatedAt time.Time `json:"created_at"`
}

type Allergy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type Report struct {
	ID         string     `json:"id"`
	TargetType string     `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	ReporterID string     `json:"reporter_id"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

type Analytics struct {
	TotalUsers      int `json:"total_users"`
	ActiveUsers     int `json:"active_users"`
	TotalProducts   int `json:"total_products"`
	PendingProducts int `json:"pending_products"`
	TotalAllergies  int `json:"total_allergies"`
	OpenReports     int `json:"open_reports"`
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// ListParams are forwarded as query parameters.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Status   string
}
