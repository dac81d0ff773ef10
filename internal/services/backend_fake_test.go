package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"orlandiv/internal/backend"
	"orlandiv/internal/domain"
	apperrors "orlandiv/pkg/errors"
)

// fakeBackend keeps rows as JSON per table, newest first
type fakeBackend struct {
	mu       sync.Mutex
	rows     map[string][]json.RawMessage
	objects  map[string]string
	tokens   []string
	calls    []string
	nextID   int
	failOn   map[string]error // operation or "select:<table>"
	sessions map[string]backend.AuthUser
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rows:     map[string][]json.RawMessage{},
		objects:  map[string]string{},
		failOn:   map[string]error{},
		sessions: map[string]backend.AuthUser{},
	}
}

func (f *fakeBackend) record(ctx context.Context, op string) error {
	f.calls = append(f.calls, op)
	f.tokens = append(f.tokens, backend.AccessToken(ctx))
	return f.failOn[op]
}

func (f *fakeBackend) Insert(ctx context.Context, rec domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "insert:"+rec.TableName()); err != nil {
		return err
	}
	f.nextID++
	switch r := rec.(type) {
	case *domain.SampleWork:
		r.ID = domain.RowID(fmt.Sprintf("id-%d", f.nextID))
	case *domain.Quote:
		r.ID = domain.RowID(fmt.Sprintf("id-%d", f.nextID))
	case *domain.Message:
		r.ID = domain.RowID(fmt.Sprintf("id-%d", f.nextID))
	case *domain.IoTRequest:
		r.ID = domain.RowID(fmt.Sprintf("id-%d", f.nextID))
	}
	row, _ := json.Marshal(rec)
	f.rows[rec.TableName()] = append([]json.RawMessage{row}, f.rows[rec.TableName()]...)
	return nil
}

func (f *fakeBackend) List(ctx context.Context, table string, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "select:"+table); err != nil {
		return err
	}
	rows := f.rows[table]
	if rows == nil {
		rows = []json.RawMessage{}
	}
	data, _ := json.Marshal(rows)
	return json.Unmarshal(data, dest)
}

func (f *fakeBackend) Delete(ctx context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "delete:"+table); err != nil {
		return err
	}
	for i, raw := range f.rows[table] {
		var row struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &row)
		if row.ID == id {
			f.rows[table] = append(f.rows[table][:i:i], f.rows[table][i+1:]...)
			return nil
		}
	}
	return apperrors.New(apperrors.ErrCodeNotFound, "no row with id "+id)
}

func (f *fakeBackend) Upload(ctx context.Context, bucket, path string, body io.Reader, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "upload"); err != nil {
		return err
	}
	data, _ := io.ReadAll(body)
	f.objects[bucket+"/"+path] = string(data)
	return nil
}

func (f *fakeBackend) PublicURL(bucket, path string) string {
	return "https://cdn.test/" + bucket + "/" + path
}

func (f *fakeBackend) SignIn(ctx context.Context, email, password string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "sign_in"); err != nil {
		return nil, err
	}
	if password != "s3cret" {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "Invalid login credentials")
	}
	token := "token-" + email
	user := backend.AuthUser{ID: "u1", Email: email}
	f.sessions[token] = user
	return &backend.Session{AccessToken: token, TokenType: "bearer", User: user}, nil
}

func (f *fakeBackend) SignOut(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "sign_out"); err != nil {
		return err
	}
	delete(f.sessions, accessToken)
	return nil
}

func (f *fakeBackend) User(ctx context.Context, accessToken string) (*backend.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(ctx, "user"); err != nil {
		return nil, err
	}
	user, ok := f.sessions[accessToken]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "invalid JWT")
	}
	return &user, nil
}

func (f *fakeBackend) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(ctx, "ping")
}

func (f *fakeBackend) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[table])
}

func (f *fakeBackend) called(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == op {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	mu   sync.Mutex
	recs []domain.Record
}

func (n *recordingNotifier) NotifySubmission(rec domain.Record) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recs = append(n.recs, rec)
}
