package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", time.Second)
	require.NoError(t, err)
	return c
}

func TestMe_SendsBearerAndDecodesUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"a@b.c","name":"Ana","role":"DONO_EMPRESA","tenantId":"t1","modules":[{"id":"m1","code":"Orders"}],"created_at":"2024-01-02T03:04:05Z"},"company":{"id":"t1","name":"Acme","slug":"acme"}}`))
	})

	me, err := c.Me(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", me.User.ID)
	assert.Equal(t, "t1", me.User.TenantID)
	require.Len(t, me.User.Modules, 1)
	assert.Equal(t, "Orders", me.User.Modules[0].Code)
	require.NotNil(t, me.Company)
	assert.Equal(t, "acme", me.Company.Slug)
}

func TestMe_NonSuccessIsStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"token expired"}`))
	})

	_, err := c.Me(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "token expired", se.Message)
}

func TestMe_ServerErrorIsNotUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Me(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestMe_EmptyTokenRejectedWithoutRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	_, err := c.Me(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, called)
}

func TestCustomerLogin_PostsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/customer-auth/login", r.URL.Path)
		var body CustomerLoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "acme", body.CompanySlug)
		_, _ = w.Write([]byte(`{"token":"ct","customer":{"id":"c1","name":"Bia","email":"bia@x.y","company_id":"t1"}}`))
	})

	out, err := c.CustomerLogin(context.Background(), CustomerLoginRequest{Email: "bia@x.y", Password: "pw", CompanySlug: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "ct", out.Token)
	assert.Equal(t, "c1", out.Customer.ID)
}

func TestLogin_MissingTokenIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"u1"}}`))
	})
	_, err := c.Login(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
