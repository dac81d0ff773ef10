package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orlandiv/internal/domain"
	apperrors "orlandiv/pkg/errors"
)

func TestAdminLoginAuthenticateLogout(t *testing.T) {
	fb := newFakeBackend()
	svc := NewAdminService(fb)
	ctx := context.Background()

	_, err := svc.Login(ctx, "admin@orlandiv.dev", "")
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))
	assert.False(t, fb.called("sign_in"))

	_, err = svc.Login(ctx, "admin@orlandiv.dev", "wrong")
	assert.Equal(t, "Invalid login credentials", apperrors.MessageOf(err))

	session, err := svc.Login(ctx, " admin@orlandiv.dev ", "s3cret")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin@orlandiv.dev", user.Email)

	require.NoError(t, svc.Logout(ctx, session.AccessToken))
	_, err = svc.Authenticate(ctx, session.AccessToken)
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = svc.Authenticate(ctx, "")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestDashboardReadsAreIndependent(t *testing.T) {
	fb := newFakeBackend()
	svc := NewAdminService(fb)
	ctx := context.Background()

	require.NoError(t, fb.Insert(ctx, &domain.Quote{Name: "Ana", Email: "ana@example.com", ProjectType: "Premium Business", Details: "Shop"}))
	require.NoError(t, fb.Insert(ctx, &domain.Message{Name: "Bo", Email: "bo@example.com", ProjectType: "Other", Details: "Hi"}))
	fb.failOn["select:"+domain.TableIoTRequests] = apperrors.New(apperrors.ErrCodeUnauthorized, "permission denied for table iot_requests")

	d := svc.Dashboard(ctx, "admin-token")
	assert.Len(t, d.Quotes, 1)
	assert.Len(t, d.Messages, 1)
	assert.Empty(t, d.SampleWorks)
	assert.Empty(t, d.IoTRequests)
	assert.Equal(t, "permission denied for table iot_requests", d.Err(domain.TableIoTRequests))
	assert.Empty(t, d.Err(domain.TableQuotes))

	for i, call := range fb.calls {
		if call == "select:"+domain.TableQuotes {
			assert.Equal(t, "admin-token", fb.tokens[i])
		}
	}
}

func TestAddSampleWork(t *testing.T) {
	fb := newFakeBackend()
	svc := NewAdminService(fb)

	_, err := svc.AddSampleWork(context.Background(), "tok", SampleWorkDraft{Title: "Shop"})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "Title and category are required.", verrs.First())
	assert.Empty(t, fb.calls)

	work, err := svc.AddSampleWork(context.Background(), "tok", SampleWorkDraft{
		Title: "Shop", Category: "E-commerce", Features: "Cart, Payments ,", Link: "#",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cart", "Payments"}, []string(work.Features))
	assert.False(t, work.HasLiveLink())
}

func TestDeleteSampleWorkRefreshesList(t *testing.T) {
	fb := newFakeBackend()
	svc := NewAdminService(fb)
	ctx := context.Background()

	keep, err := svc.AddSampleWork(ctx, "tok", SampleWorkDraft{Title: "Keep", Category: "Web"})
	require.NoError(t, err)
	drop, err := svc.AddSampleWork(ctx, "tok", SampleWorkDraft{Title: "Drop", Category: "Web"})
	require.NoError(t, err)

	works, err := svc.DeleteSampleWork(ctx, "tok", drop.ID.String())
	require.NoError(t, err)
	require.Len(t, works, 1)
	assert.Equal(t, keep.ID, works[0].ID)

	public, err := svc.ListSampleWorks(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Keep", public[0].Title)

	works, err = svc.DeleteSampleWork(ctx, "tok", drop.ID.String())
	assert.True(t, apperrors.IsNotFound(err))
	assert.Len(t, works, 1)
}

func TestAdminListUnknownTable(t *testing.T) {
	svc := NewAdminService(newFakeBackend())
	_, err := svc.List(context.Background(), "tok", "users")
	assert.True(t, apperrors.IsNotFound(err))

	rows, err := svc.List(context.Background(), "tok", domain.TableQuotes)
	require.NoError(t, err)
	assert.Equal(t, &[]domain.Quote{}, rows)
}
