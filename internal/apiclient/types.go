package apiclient

// Wire shapes of the Evolutech API. Field names follow the backend, which mixes
// camelCase with a few snake_case columns.

type ModulePayload struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

type UserPayload struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Role       string          `json:"role"`
	TenantID   string          `json:"tenantId,omitempty"`
	TenantName string          `json:"tenantName,omitempty"`
	TenantSlug string          `json:"tenantSlug,omitempty"`
	Avatar     string          `json:"avatar,omitempty"`
	Modules    []ModulePayload `json:"modules,omitempty"`
	CreatedAt  string          `json:"created_at,omitempty"`
}

type CompanyPayload struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	PrimaryColor   string          `json:"primaryColor,omitempty"`
	SecondaryColor string          `json:"secondaryColor,omitempty"`
	LogoURL        string          `json:"logoUrl,omitempty"`
	Modules        []ModulePayload `json:"modules,omitempty"`
}

// MeResponse is the body of GET /auth/me.
type MeResponse struct {
	User    UserPayload     `json:"user"`
	Company *CompanyPayload `json:"company,omitempty"`
}

// LoginResponse is the body of POST /auth/login.
type LoginResponse struct {
	Token   string          `json:"token"`
	User    UserPayload     `json:"user"`
	Company *CompanyPayload `json:"company,omitempty"`
}

type CustomerPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name,omitempty"`
	CompanySlug string `json:"company_slug,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type CustomerLoginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanySlug string `json:"company_slug"`
}

type CustomerRegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Password    string `json:"password"`
	CompanySlug string `json:"company_slug"`
}

// CustomerAuthResponse is returned by customer-auth login and register.
type CustomerAuthResponse struct {
	Token    string          `json:"token"`
	Customer CustomerPayload `json:"customer"`
}

type CustomerMeResponse struct {
	Customer CustomerPayload `json:"customer"`
}
