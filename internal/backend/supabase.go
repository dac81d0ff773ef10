package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"orlandiv/internal/domain"
	apperrors "orlandiv/pkg/errors"
)

// Supabase talks to a hosted Supabase project over its REST APIs
// (PostgREST for tables, Storage for objects, GoTrue for auth).
type Supabase struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewSupabase creates a client for the project at baseURL using the public anon key
func NewSupabase(baseURL, anonKey string, timeout time.Duration) *Supabase {
	return &Supabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Insert implements Backend. Anonymous inserts ask for no row back, since
// visitors may insert into a table they are not allowed to select from; rec
// keeps an empty id and created_at. With a user token on ctx the stored row
// is read back into rec.
func (s *Supabase) Insert(ctx context.Context, rec domain.Record) error {
	if reflect.TypeOf(rec).Kind() != reflect.Pointer {
		return fmt.Errorf("insert needs a pointer record, got %T", rec)
	}
	body, err := json.Marshal([]domain.Record{rec})
	if err != nil {
		return fmt.Errorf("failed to marshal %s row: %w", rec.TableName(), err)
	}

	req := request{
		method:  http.MethodPost,
		path:    "/rest/v1/" + url.PathEscape(rec.TableName()),
		body:    bytes.NewReader(body),
		headers: map[string]string{"Content-Type": "application/json", "Prefer": "return=minimal"},
	}
	if AccessToken(ctx) == "" {
		return s.do(ctx, req, nil)
	}

	req.headers["Prefer"] = "return=representation"
	rows := reflect.New(reflect.SliceOf(reflect.TypeOf(rec).Elem()))
	if err := s.do(ctx, req, rows.Interface()); err != nil {
		return err
	}
	if rows.Elem().Len() > 0 {
		reflect.ValueOf(rec).Elem().Set(rows.Elem().Index(0))
	}
	return nil
}

// List implements Backend
func (s *Supabase) List(ctx context.Context, table string, dest any) error {
	req := request{
		method: http.MethodGet,
		path:   "/rest/v1/" + url.PathEscape(table),
		query:  url.Values{"select": {"*"}, "order": {"created_at.desc"}},
	}
	return s.do(ctx, req, dest)
}

// Delete implements Backend
func (s *Supabase) Delete(ctx context.Context, table, id string) error {
	var deleted []map[string]any
	req := request{
		method:  http.MethodDelete,
		path:    "/rest/v1/" + url.PathEscape(table),
		query:   url.Values{"id": {"eq." + id}},
		headers: map[string]string{"Prefer": "return=representation"},
	}
	if err := s.do(ctx, req, &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("no %s row with id %s", table, id))
	}
	return nil
}

// Upload implements Backend
func (s *Supabase) Upload(ctx context.Context, bucket, path string, body io.Reader, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req := request{
		method:  http.MethodPost,
		path:    "/storage/v1/object/" + url.PathEscape(bucket) + "/" + escapeObjectPath(path),
		body:    body,
		headers: map[string]string{"Content-Type": contentType, "x-upsert": "false"},
	}
	return s.do(ctx, req, nil)
}

// PublicURL implements Backend
func (s *Supabase) PublicURL(bucket, path string) string {
	return s.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + escapeObjectPath(path)
}

// SignIn implements Backend
func (s *Supabase) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	var session Session
	req := request{
		method:  http.MethodPost,
		path:    "/auth/v1/token",
		query:   url.Values{"grant_type": {"password"}},
		body:    bytes.NewReader(body),
		headers: map[string]string{"Content-Type": "application/json"},
		auth:    true,
	}
	if err := s.do(ctx, req, &session); err != nil {
		return nil, err
	}
	if session.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(session.ExpiresIn) * time.Second)
	}
	return &session, nil
}

// SignOut implements Backend
func (s *Supabase) SignOut(ctx context.Context, accessToken string) error {
	req := request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  accessToken,
		auth:   true,
	}
	return s.do(ctx, req, nil)
}

// User implements Backend
func (s *Supabase) User(ctx context.Context, accessToken string) (*AuthUser, error) {
	var user AuthUser
	req := request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		token:  accessToken,
		auth:   true,
	}
	if err := s.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Ping implements Backend
func (s *Supabase) Ping(ctx context.Context) error {
	return s.do(ctx, request{method: http.MethodGet, path: "/auth/v1/health"}, nil)
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    io.Reader
	headers map[string]string
	token   string // overrides the token carried by ctx
	auth    bool   // auth endpoint: 400 responses mean rejected credentials
}

func (s *Supabase) do(ctx context.Context, r request, out any) error {
	target := s.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token := r.token
	if token == "" {
		token = AccessToken(ctx)
	}
	if token == "" {
		token = s.anonKey
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Debugf("[BACKEND] %s %s failed: %v", r.method, r.path, err)
		return apperrors.Wrap(apperrors.ErrCodeUpstream, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		message := errorMessage(payload, resp.Status)
		cause := fmt.Errorf("%s %s: status %d", r.method, r.path, resp.StatusCode)
		log.Debugf("[BACKEND] %v: %s", cause, message)
		return apperrors.Wrap(statusCode(resp.StatusCode, r.auth), message, cause)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "unexpected response from backend", err)
	}
	return nil
}

func statusCode(status int, authEndpoint bool) apperrors.ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.ErrCodeUnauthorized
	case authEndpoint && status == http.StatusBadRequest:
		return apperrors.ErrCodeUnauthorized
	case status == http.StatusNotFound:
		return apperrors.ErrCodeNotFound
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return apperrors.ErrCodeBadRequest
	}
	return apperrors.ErrCodeUpstream
}

// errorMessage pulls the human-readable text out of a PostgREST, Storage or
// GoTrue error body.
func errorMessage(payload []byte, fallback string) string {
	var body struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		Error            any    `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		for _, m := range []string{body.Message, body.Msg, body.ErrorDescription} {
			if m != "" {
				return m
			}
		}
		if e, ok := body.Error.(string); ok && e != "" {
			return e
		}
	}
	if text := strings.TrimSpace(string(payload)); text != "" && len(text) < 200 {
		return text
	}
	return fallback
}

func escapeObjectPath(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
