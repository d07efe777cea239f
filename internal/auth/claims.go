package auth

import "github.com/golang-jwt/jwt/v5"

// Kind tells apart the two independent browser sessions a client may hold.
type Kind string

const (
	KindOperator Kind = "operator"
	KindCustomer Kind = "customer"
)

func (k Kind) Valid() bool {
	return k == KindOperator || k == KindCustomer
}

// Claims are the only supported cookie claims shape.
// The cookie never carries the backend bearer token; it only names the server-side slot.
type Claims struct {
	jwt.RegisteredClaims

	SessionID string `json:"sid"`
	Kind      Kind   `json:"kind"`
}
