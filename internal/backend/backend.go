// Package backend is the boundary to the backend-as-a-service that stores
// site submissions, holds uploaded files and authenticates the admin.
package backend

import (
	"context"
	"io"
	"time"

	"orlandiv/internal/domain"
	"orlandiv/internal/metrics"
)

// Backend is the subset of the hosted platform the site uses: table
// insert/select/delete, object upload with public URLs, and password auth.
type Backend interface {
	// Insert stores rec as a new row of rec.TableName(). rec is refreshed
	// with the stored id and created_at when the caller may read the table.
	Insert(ctx context.Context, rec domain.Record) error
	// List loads every row of table, newest first, into dest (a pointer to a slice).
	List(ctx context.Context, table string, dest any) error
	// Delete removes the row of table with the given id.
	Delete(ctx context.Context, table, id string) error

	Upload(ctx context.Context, bucket, path string, body io.Reader, contentType string) error
	PublicURL(bucket, path string) string

	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	User(ctx context.Context, accessToken string) (*AuthUser, error)

	Ping(ctx context.Context) error
}

// Session is an authenticated admin session
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         AuthUser  `json:"user"`
}

// AuthUser identifies a signed-in admin
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type accessTokenKey struct{}

// WithAccessToken returns a context whose backend calls act as the signed-in user
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the user token carried by ctx, if any
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// Instrument wraps b so every call is recorded in the backend metrics
func Instrument(b Backend) Backend {
	return &instrumented{next: b}
}

type instrumented struct {
	next Backend
}

func (i *instrumented) Insert(ctx context.Context, rec domain.Record) (err error) {
	defer observe("insert", time.Now(), &err)
	return i.next.Insert(ctx, rec)
}

func (i *instrumented) List(ctx context.Context, table string, dest any) (err error) {
	defer observe("select", time.Now(), &err)
	return i.next.List(ctx, table, dest)
}

func (i *instrumented) Delete(ctx context.Context, table, id string) (err error) {
	defer observe("delete", time.Now(), &err)
	return i.next.Delete(ctx, table, id)
}

func (i *instrumented) Upload(ctx context.Context, bucket, path string, body io.Reader, contentType string) (err error) {
	defer observe("upload", time.Now(), &err)
	return i.next.Upload(ctx, bucket, path, body, contentType)
}

func (i *instrumented) PublicURL(bucket, path string) string {
	return i.next.PublicURL(bucket, path)
}

func (i *instrumented) SignIn(ctx context.Context, email, password string) (s *Session, err error) {
	defer observe("sign_in", time.Now(), &err)
	return i.next.SignIn(ctx, email, password)
}

func (i *instrumented) SignOut(ctx context.Context, accessToken string) (err error) {
	defer observe("sign_out", time.Now(), &err)
	return i.next.SignOut(ctx, accessToken)
}

func (i *instrumented) User(ctx context.Context, accessToken string) (u *AuthUser, err error) {
	defer observe("user", time.Now(), &err)
	return i.next.User(ctx, accessToken)
}

func (i *instrumented) Ping(ctx context.Context) (err error) {
	defer observe("ping", time.Now(), &err)
	return i.next.Ping(ctx)
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordBackendCall(op, time.Since(start), *err)
}
