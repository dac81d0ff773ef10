package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"orlandiv/internal/backend"
	"orlandiv/internal/domain"
	"orlandiv/internal/metrics"
	apperrors "orlandiv/pkg/errors"
)

// SampleWorkDraft is the admin form for a new portfolio entry
type SampleWorkDraft struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Image    string `json:"image"`
	Features string `json:"features"` // comma separated
	Link     string `json:"link"`
}

// Dashboard is everything the admin panel lists. A table whose read
// failed is empty and has its error message in Errors.
type Dashboard struct {
	SampleWorks []domain.SampleWork `json:"sample_works"`
	Quotes      []domain.Quote      `json:"quotes"`
	Messages    []domain.Message    `json:"messages"`
	IoTRequests []domain.IoTRequest `json:"iot_requests"`
	Errors      map[string]string   `json:"errors,omitempty"`
}

// Err returns the read error for table, or ""
func (d *Dashboard) Err(table string) string {
	return d.Errors[table]
}

// AdminService implements the admin panel: sign-in, listing and
// portfolio management. Table calls act as the signed-in admin.
type AdminService struct {
	backend backend.Backend
}

// NewAdminService creates a new admin service
func NewAdminService(b backend.Backend) *AdminService {
	return &AdminService{backend: b}
}

// Login signs the admin in with email and password
func (s *AdminService) Login(ctx context.Context, email, password string) (*backend.Session, error) {
	email = strings.TrimSpace(email)
	log.Infof("[ADMIN] Login attempt for %s", email)

	if email == "" || password == "" {
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "Email and password are required.")
	}

	session, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		log.Infof("[ADMIN] Login failed for %s: %s", email, apperrors.MessageOf(err))
		metrics.RecordAuthAttempt(false)
		return nil, err
	}

	log.Infof("[ADMIN] Login successful for %s", session.User.Email)
	metrics.RecordAuthAttempt(true)
	return session, nil
}

// Logout ends the session behind token
func (s *AdminService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.backend.SignOut(ctx, token); err != nil {
		log.Warnf("[ADMIN] Logout failed: %v", err)
		return err
	}
	return nil
}

// Authenticate resolves token to the signed-in admin
func (s *AdminService) Authenticate(ctx context.Context, token string) (*backend.AuthUser, error) {
	if token == "" {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "not signed in")
	}
	return s.backend.User(ctx, token)
}

// Dashboard reads the four tables independently
func (s *AdminService) Dashboard(ctx context.Context, token string) *Dashboard {
	ctx = backend.WithAccessToken(ctx, token)
	d := &Dashboard{
		SampleWorks: []domain.SampleWork{},
		Quotes:      []domain.Quote{},
		Messages:    []domain.Message{},
		IoTRequests: []domain.IoTRequest{},
		Errors:      map[string]string{},
	}

	targets := map[string]any{
		domain.TableSampleWorks: &d.SampleWorks,
		domain.TableQuotes:      &d.Quotes,
		domain.TableMessages:    &d.Messages,
		domain.TableIoTRequests: &d.IoTRequests,
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for table, dest := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.backend.List(ctx, table, dest); err != nil {
				log.Warnf("[ADMIN] failed to fetch %s: %v", table, err)
				mu.Lock()
				d.Errors[table] = apperrors.MessageOf(err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// A failed read may have partially filled its slice
	for table := range d.Errors {
		switch table {
		case domain.TableSampleWorks:
			d.SampleWorks = []domain.SampleWork{}
		case domain.TableQuotes:
			d.Quotes = []domain.Quote{}
		case domain.TableMessages:
			d.Messages = []domain.Message{}
		case domain.TableIoTRequests:
			d.IoTRequests = []domain.IoTRequest{}
		}
	}
	return d
}

// List returns every row of one table, newest first
func (s *AdminService) List(ctx context.Context, token, table string) (any, error) {
	ctx = backend.WithAccessToken(ctx, token)
	var dest any
	switch table {
	case domain.TableSampleWorks:
		dest = &[]domain.SampleWork{}
	case domain.TableQuotes:
		dest = &[]domain.Quote{}
	case domain.TableMessages:
		dest = &[]domain.Message{}
	case domain.TableIoTRequests:
		dest = &[]domain.IoTRequest{}
	default:
		return nil, apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("unknown table %q", table))
	}
	if err := s.backend.List(ctx, table, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// ListSampleWorks is the public portfolio read
func (s *AdminService) ListSampleWorks(ctx context.Context) ([]domain.SampleWork, error) {
	works := []domain.SampleWork{}
	if err := s.backend.List(ctx, domain.TableSampleWorks, &works); err != nil {
		return nil, err
	}
	return works, nil
}

// AddSampleWork stores a new portfolio entry
func (s *AdminService) AddSampleWork(ctx context.Context, token string, d SampleWorkDraft) (*domain.SampleWork, error) {
	work := &domain.SampleWork{
		Title:    strings.TrimSpace(d.Title),
		Category: strings.TrimSpace(d.Category),
		Image:    strings.TrimSpace(d.Image),
		Features: SplitFeatures(d.Features),
		Link:     strings.TrimSpace(d.Link),
	}

	var verrs ValidationErrors
	if work.Title == "" || work.Category == "" {
		verrs.add(FieldForm, "Title and category are required.")
	}
	if err := verrs.orNil(); err != nil {
		return nil, err
	}

	if err := s.backend.Insert(backend.WithAccessToken(ctx, token), work); err != nil {
		log.Warnf("[ADMIN] failed to add sample work %q: %v", work.Title, err)
		return nil, err
	}
	log.Infof("[ADMIN] sample work added: id=%s, title=%s", work.ID, work.Title)
	return work, nil
}

// DeleteSampleWork deletes one portfolio entry and returns the refreshed
// list. The list is re-read even when the delete failed.
func (s *AdminService) DeleteSampleWork(ctx context.Context, token, id string) ([]domain.SampleWork, error) {
	ctx = backend.WithAccessToken(ctx, token)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "Sample work id is required.")
	}

	deleteErr := s.backend.Delete(ctx, domain.TableSampleWorks, id)
	if deleteErr != nil {
		log.Warnf("[ADMIN] failed to delete sample work %s: %v", id, deleteErr)
	} else {
		log.Infof("[ADMIN] sample work deleted: id=%s", id)
	}

	works := []domain.SampleWork{}
	if err := s.backend.List(ctx, domain.TableSampleWorks, &works); err != nil {
		if deleteErr == nil {
			deleteErr = err
		}
		works = []domain.SampleWork{}
	}
	return works, deleteErr
}
