package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"orlandiv/internal/backend"
	"orlandiv/internal/content"
	"orlandiv/internal/domain"
	"orlandiv/internal/metrics"
	apperrors "orlandiv/pkg/errors"
)

// Confirmation messages shown after a stored submission
const (
	QuoteConfirmation   = "Thank you! Your quote request has been sent."
	MessageConfirmation = "Thank you! Your message has been sent."
	IoTConfirmation     = "Thank you! Your request has been sent."
)

// QuoteDraft is the pricing section form
type QuoteDraft struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Tier    string `json:"tier"`
	Details string `json:"details"`
}

// MessageDraft is the contact section form
type MessageDraft struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	ProjectType string `json:"project_type"`
	Details     string `json:"details"`
}

// IoTDraft is the IoT services form
type IoTDraft struct {
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Number  string      `json:"number"`
	Message string      `json:"message"`
	File    *Attachment `json:"-"`
}

// Attachment is a file picked on the IoT form
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadPolicy limits IoT attachments
type UploadPolicy struct {
	Bucket            string
	MaxBytes          int64
	AllowedExtensions []string
}

// SubmissionService stores visitor form submissions in the backend
type SubmissionService struct {
	backend  backend.Backend
	catalog  *content.Catalog
	notifier Notifier
	uploads  UploadPolicy
	now      func() time.Time
}

// NewSubmissionService creates a new submission service. notifier may be nil.
func NewSubmissionService(b backend.Backend, catalog *content.Catalog, notifier Notifier, uploads UploadPolicy) *SubmissionService {
	return &SubmissionService{
		backend:  b,
		catalog:  catalog,
		notifier: notifier,
		uploads:  uploads,
		now:      time.Now,
	}
}

// SubmitQuote stores a quote request for the selected pricing tier
func (s *SubmissionService) SubmitQuote(ctx context.Context, d QuoteDraft) (*domain.Quote, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Details = strings.TrimSpace(d.Details)

	var verrs ValidationErrors
	if d.Name == "" || d.Email == "" || d.Details == "" {
		verrs.add(FieldForm, "All fields are required.")
	} else if !IsValidEmail(d.Email) {
		verrs.add("email", "Invalid email address.")
	}
	if err := verrs.orNil(); err != nil {
		log.Debugf("[QUOTE] rejected: %v", err)
		metrics.RecordSubmission(domain.TableQuotes, metrics.OutcomeInvalid)
		return nil, err
	}

	tier, _ := s.catalog.Tier(d.Tier)
	quote := &domain.Quote{
		Name:        d.Name,
		Email:       d.Email,
		ProjectType: tier.Name,
		Details:     d.Details,
	}
	if err := s.store(ctx, quote); err != nil {
		return nil, err
	}
	log.Infof("[QUOTE] stored: id=%s, package=%s", quote.ID, quote.ProjectType)
	return quote, nil
}

// SubmitMessage stores a contact form message
func (s *SubmissionService) SubmitMessage(ctx context.Context, d MessageDraft) (*domain.Message, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.ProjectType = strings.TrimSpace(d.ProjectType)
	d.Details = strings.TrimSpace(d.Details)
	if d.ProjectType == "" {
		d.ProjectType = s.catalog.DefaultContactProjectType()
	}

	var verrs ValidationErrors
	if d.Name == "" {
		verrs.add("name", "Name is required.")
	}
	if d.Email == "" {
		verrs.add("email", "Email is required.")
	} else if !IsValidEmail(d.Email) {
		verrs.add("email", "Invalid email address.")
	}
	if !s.catalog.IsContactProjectType(d.ProjectType) {
		verrs.add("project_type", "Please choose a project type.")
	}
	if d.Details == "" {
		verrs.add("details", "Project details are required.")
	}
	if err := verrs.orNil(); err != nil {
		log.Debugf("[MESSAGE] rejected: %v", err)
		metrics.RecordSubmission(domain.TableMessages, metrics.OutcomeInvalid)
		return nil, err
	}

	msg := &domain.Message{
		Name:        d.Name,
		Email:       d.Email,
		ProjectType: d.ProjectType,
		Details:     d.Details,
	}
	if err := s.store(ctx, msg); err != nil {
		return nil, err
	}
	log.Infof("[MESSAGE] stored: id=%s, project_type=%s", msg.ID, msg.ProjectType)
	return msg, nil
}

// SubmitIoTRequest stores an IoT services request. An attached file is
// uploaded first and the request is only stored if the upload succeeded.
func (s *SubmissionService) SubmitIoTRequest(ctx context.Context, d IoTDraft) (*domain.IoTRequest, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Number = strings.TrimSpace(d.Number)
	d.Message = strings.TrimSpace(d.Message)

	var verrs ValidationErrors
	if d.Name == "" || d.Email == "" || d.Message == "" {
		verrs.add(FieldForm, "Name, email, and message are required.")
	} else if !IsValidEmail(d.Email) {
		verrs.add("email", "Invalid email address.")
	}
	if d.File != nil {
		if msg := s.checkAttachment(d.File); msg != "" {
			verrs.add("file", msg)
		}
	}
	if err := verrs.orNil(); err != nil {
		log.Debugf("[IOT] rejected: %v", err)
		metrics.RecordSubmission(domain.TableIoTRequests, metrics.OutcomeInvalid)
		return nil, err
	}

	req := &domain.IoTRequest{
		Name:    d.Name,
		Email:   d.Email,
		Message: d.Message,
	}
	if d.Number != "" {
		req.Number = &d.Number
	}

	if d.File != nil {
		fileURL, err := s.upload(ctx, d.File)
		if err != nil {
			metrics.RecordSubmission(domain.TableIoTRequests, metrics.OutcomeFailed)
			return nil, err
		}
		req.FileURL = &fileURL
	}

	if err := s.store(ctx, req); err != nil {
		return nil, err
	}
	log.Infof("[IOT] stored: id=%s, attachment=%v", req.ID, req.FileURL != nil)
	return req, nil
}

func (s *SubmissionService) store(ctx context.Context, rec domain.Record) error {
	table := rec.TableName()
	if err := s.backend.Insert(ctx, rec); err != nil {
		log.Warnf("[%s] insert failed: %v", strings.ToUpper(table), err)
		metrics.RecordSubmission(table, metrics.OutcomeFailed)
		return err
	}
	metrics.RecordSubmission(table, metrics.OutcomeStored)
	if s.notifier != nil {
		s.notifier.NotifySubmission(rec)
	}
	return nil
}

func (s *SubmissionService) checkAttachment(a *Attachment) string {
	ext := strings.ToLower(filepath.Ext(a.Filename))
	allowed := false
	for _, e := range s.uploads.AllowedExtensions {
		if strings.EqualFold(e, ext) {
			allowed = true
			break
		}
	}
	if !allowed {
		return "File type not allowed. Accepted: " + strings.Join(s.uploads.AllowedExtensions, ", ")
	}
	if s.uploads.MaxBytes > 0 && a.Size > s.uploads.MaxBytes {
		return fmt.Sprintf("File is too large (max %d MB).", s.uploads.MaxBytes>>20)
	}
	return ""
}

func (s *SubmissionService) upload(ctx context.Context, a *Attachment) (string, error) {
	path := ObjectPath(s.now(), a.Filename)
	err := s.backend.Upload(ctx, s.uploads.Bucket, path, a.Body, a.ContentType)
	metrics.RecordUpload(a.Size, err)
	if err != nil {
		log.Warnf("[IOT] upload of %s failed: %v", path, err)
		return "", apperrors.Wrap(apperrors.CodeOf(err), "File upload failed: "+apperrors.MessageOf(err), err)
	}
	return s.backend.PublicURL(s.uploads.Bucket, path), nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectPath names an uploaded file: upload time in unix milliseconds, a
// dash, then the base filename with anything unusual replaced by dashes.
func ObjectPath(at time.Time, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Trim(unsafeFilenameChars.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%d-%s", at.UnixMilli(), base)
}
