package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orlandiv/internal/domain"
	apperrors "orlandiv/pkg/errors"
)

func newTestSupabase(t *testing.T, handler http.HandlerFunc) *Supabase {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSupabase(srv.URL+"/", "anon-key", 5*time.Second)
}

// rlsPostgrest behaves like a table whose anon role may insert but not
// select: asking for the inserted row back is refused.
func rlsPostgrest(t *testing.T, gotBody *[]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/quotes", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(gotBody))

		anon := r.Header.Get("Authorization") == "Bearer anon-key"
		if anon && r.Header.Get("Prefer") == "return=representation" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":"42501","message":"new row violates row-level security policy for table \"quotes\""}`)
			return
		}
		if r.Header.Get("Prefer") == "return=minimal" {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":12,"name":"Ana","email":"ana@example.com","project_type":"Premium Business","details":"Shop","created_at":"2026-10-01T10:00:00+00:00"}]`)
	}
}

func TestSupabaseAnonymousInsertAsksForNoRow(t *testing.T) {
	var gotBody []map[string]any
	sb := newTestSupabase(t, rlsPostgrest(t, &gotBody))

	quote := &domain.Quote{Name: "Ana", Email: "ana@example.com", ProjectType: "Premium Business", Details: "Shop"}
	require.NoError(t, sb.Insert(context.Background(), quote))

	require.Len(t, gotBody, 1)
	assert.NotContains(t, gotBody[0], "id")
	assert.NotContains(t, gotBody[0], "created_at")
	assert.Equal(t, "Premium Business", gotBody[0]["project_type"])

	assert.Empty(t, quote.ID)
	assert.True(t, quote.CreatedAt.IsZero())
}

func TestSupabaseSignedInInsertReadsRowBack(t *testing.T) {
	var gotBody []map[string]any
	sb := newTestSupabase(t, rlsPostgrest(t, &gotBody))

	quote := &domain.Quote{Name: "Ana", Email: "ana@example.com", ProjectType: "Premium Business", Details: "Shop"}
	require.NoError(t, sb.Insert(WithAccessToken(context.Background(), "user-token"), quote))

	assert.Equal(t, domain.RowID("12"), quote.ID)
	assert.Equal(t, 2026, quote.CreatedAt.Year())
}

func TestSupabaseInsertSurfacesPostgrestMessage(t *testing.T) {
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"23502","message":"null value in column \"details\" violates not-null constraint"}`)
	})

	err := sb.Insert(context.Background(), &domain.Message{Name: "Ana"})
	require.Error(t, err)
	assert.Equal(t, `null value in column "details" violates not-null constraint`, apperrors.MessageOf(err))
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))
}

func TestSupabaseListOrdersNewestFirstWithUserToken(t *testing.T) {
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/sample_works", r.URL.Path)
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":"b","title":"New","category":"Web","features":["A","B"]},{"id":"a","title":"Old","category":"Web","features":null}]`)
	})

	var works []domain.SampleWork
	ctx := WithAccessToken(context.Background(), "user-token")
	require.NoError(t, sb.List(ctx, domain.TableSampleWorks, &works))
	require.Len(t, works, 2)
	assert.Equal(t, "New", works[0].Title)
	assert.Equal(t, []string{"A", "B"}, []string(works[0].Features))
}

func TestSupabaseListAcceptsNumericIDs(t *testing.T) {
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":7,"title":"Shop","category":"E-commerce","features":["Cart"]},{"id":"a1","title":"Blog","category":"Web"}]`)
	})

	var works []domain.SampleWork
	require.NoError(t, sb.List(context.Background(), domain.TableSampleWorks, &works))
	require.Len(t, works, 2)
	assert.Equal(t, "7", works[0].ID.String())
	assert.Equal(t, "a1", works[1].ID.String())
}

func TestSupabaseDeleteByID(t *testing.T) {
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.abc", r.URL.Query().Get("id"))
		if r.URL.Query().Get("id") == "eq.abc" {
			_, _ = io.WriteString(w, `[{"id":"abc"}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})

	require.NoError(t, sb.Delete(context.Background(), domain.TableSampleWorks, "abc"))
}

func TestSupabaseDeleteMissingRow(t *testing.T) {
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	err := sb.Delete(context.Background(), domain.TableSampleWorks, "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSupabaseUploadAndPublicURL(t *testing.T) {
	var gotPath, gotType, gotBody string
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"Key":"iot-uploads/1700000000000-brief.pdf"}`)
	})

	err := sb.Upload(context.Background(), "iot-uploads", "1700000000000-my brief.pdf", strings.NewReader("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/iot-uploads/1700000000000-my%20brief.pdf", gotPath)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF", gotBody)

	assert.True(t, strings.HasSuffix(sb.PublicURL("iot-uploads", "1700000000000-my brief.pdf"),
		"/storage/v1/object/public/iot-uploads/1700000000000-my%20brief.pdf"))
}

func TestSupabaseUploadErrorMessage(t *testing.T) {
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`)
	})

	err := sb.Upload(context.Background(), "iot-uploads", "x.pdf", strings.NewReader("x"), "")
	assert.Equal(t, "The resource already exists", apperrors.MessageOf(err))
}

func TestSupabaseSignIn(t *testing.T) {
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "right" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"jwt","token_type":"bearer","expires_in":3600,"user":{"id":"u1","email":"admin@orlandiv.dev"}}`)
	})

	session, err := sb.SignIn(context.Background(), "admin@orlandiv.dev", "right")
	require.NoError(t, err)
	assert.Equal(t, "jwt", session.AccessToken)
	assert.Equal(t, "admin@orlandiv.dev", session.User.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	_, err = sb.SignIn(context.Background(), "admin@orlandiv.dev", "wrong")
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, "Invalid login credentials", apperrors.MessageOf(err))
}

func TestSupabaseUserAndSignOutUseGivenToken(t *testing.T) {
	sb := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/user":
			_, _ = io.WriteString(w, `{"id":"u1","email":"admin@orlandiv.dev"}`)
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	user, err := sb.User(context.Background(), "user-jwt")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NoError(t, sb.SignOut(context.Background(), "user-jwt"))
}

func TestSupabaseNetworkFailureIsUpstream(t *testing.T) {
	sb := NewSupabase("http://127.0.0.1:1", "anon", time.Second)
	err := sb.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUpstream, apperrors.CodeOf(err))
}

func TestErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "bad jwt", errorMessage([]byte(`{"msg":"bad jwt"}`), "401"))
	assert.Equal(t, "Duplicate", errorMessage([]byte(`{"error":"Duplicate"}`), "409"))
	assert.Equal(t, "502 Bad Gateway", errorMessage(nil, "502 Bad Gateway"))
}
