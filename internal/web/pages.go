package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"orlandiv/internal/content"
	"orlandiv/internal/domain"
	"orlandiv/internal/services"
	apperrors "orlandiv/pkg/errors"
)

// formState is one form as rendered: the draft the visitor typed, field
// errors, a submit error, or a confirmation.
type formState[T any] struct {
	Draft   T
	Errors  services.ValidationErrors
	Error   string
	Success string
}

// settle records the outcome of a submission. Success clears the draft.
func (f *formState[T]) settle(err error, confirmation string) int {
	var verrs services.ValidationErrors
	switch {
	case err == nil:
		var empty T
		f.Draft = empty
		f.Success = confirmation
	case errors.As(err, &verrs):
		f.Errors = verrs
	default:
		f.Error = apperrors.MessageOf(err)
	}
	return statusOf(err)
}

type pageData struct {
	Catalog        *content.Catalog
	Tier           content.PricingTier
	SampleWorks    []domain.SampleWork
	PortfolioError string
	Accept         string

	Quote   formState[services.QuoteDraft]
	Message formState[services.MessageDraft]
	IoT     formState[services.IoTDraft]
}

func (s *Server) newPage(r *http.Request, tierKey string) *pageData {
	tier, _ := s.opts.Catalog.Tier(tierKey)
	page := &pageData{
		Catalog: s.opts.Catalog,
		Tier:    tier,
		Accept:  strings.Join(s.opts.UploadAccept, ","),
	}
	page.Message.Draft.ProjectType = s.opts.Catalog.DefaultContactProjectType()

	works, err := s.opts.Admin.ListSampleWorks(r.Context())
	if err != nil {
		page.PortfolioError = apperrors.MessageOf(err)
	}
	page.SampleWorks = works
	return page
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "page.html", s.newPage(r, r.URL.Query().Get("tier")))
}

func (s *Server) handleQuoteForm(w http.ResponseWriter, r *http.Request) {
	draft := services.QuoteDraft{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Tier:    r.PostFormValue("tier"),
		Details: r.PostFormValue("details"),
	}
	_, err := s.opts.Submissions.SubmitQuote(r.Context(), draft)

	page := s.newPage(r, draft.Tier)
	page.Quote.Draft = draft
	status := page.Quote.settle(err, services.QuoteConfirmation)
	s.render(w, status, "page.html", page)
}

func (s *Server) handleMessageForm(w http.ResponseWriter, r *http.Request) {
	draft := services.MessageDraft{
		Name:        r.PostFormValue("name"),
		Email:       r.PostFormValue("email"),
		ProjectType: r.PostFormValue("project_type"),
		Details:     r.PostFormValue("details"),
	}
	_, err := s.opts.Submissions.SubmitMessage(r.Context(), draft)

	page := s.newPage(r, "")
	page.Message.Draft = draft
	status := page.Message.settle(err, services.MessageConfirmation)
	if err == nil {
		page.Message.Draft.ProjectType = s.opts.Catalog.DefaultContactProjectType()
	}
	s.render(w, status, "page.html", page)
}

func (s *Server) handleIoTForm(w http.ResponseWriter, r *http.Request) {
	draft, cleanup, err := s.parseIoTForm(w, r)
	defer cleanup()
	if err == nil {
		_, err = s.opts.Submissions.SubmitIoTRequest(r.Context(), draft)
	}

	page := s.newPage(r, "")
	draft.File = nil
	page.IoT.Draft = draft
	status := page.IoT.settle(err, services.IoTConfirmation)
	s.render(w, status, "page.html", page)
}

const maxFieldBytes = 64 << 10

// parseIoTForm streams the multipart IoT form. Fields read before a failure
// stay in the returned draft so the form can be re-rendered with them. The
// returned cleanup removes the spooled attachment and must always be called.
func (s *Server) parseIoTForm(w http.ResponseWriter, r *http.Request) (services.IoTDraft, func(), error) {
	cleanup := func() {}
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	r.Body = body

	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return services.IoTDraft{
			Name:    r.PostFormValue("name"),
			Email:   r.PostFormValue("email"),
			Number:  r.PostFormValue("number"),
			Message: r.PostFormValue("message"),
		}, cleanup, nil
	}
	if err != nil {
		return services.IoTDraft{}, cleanup, apperrors.Wrap(apperrors.ErrCodeBadRequest, "Could not read the form.", err)
	}

	var draft services.IoTDraft
	fail := func(err error) (services.IoTDraft, func(), error) {
		draft.File = nil
		if bodyTooLarge(err, body) {
			return draft, cleanup, services.ValidationErrors{{
				Field: "file", Message: fmt.Sprintf("File is too large (max %d MB).", s.opts.MaxUploadBytes>>20),
			}}
		}
		return draft, cleanup, apperrors.Wrap(apperrors.ErrCodeBadRequest, "Could not read the form.", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}

		switch name := part.FormName(); name {
		case "name", "email", "number", "message":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				return fail(err)
			}
			setIoTField(&draft, name, string(value))
		case "file":
			if part.FileName() == "" || draft.File != nil {
				continue
			}
			tmp, err := os.CreateTemp("", "iot-upload-*")
			if err != nil {
				return draft, cleanup, apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not read the attached file.", err)
			}
			cleanup = func() {
				tmp.Close()
				_ = os.Remove(tmp.Name())
			}
			// One byte past the limit is enough for the size check
			n, err := io.Copy(tmp, io.LimitReader(part, s.opts.MaxUploadBytes+1))
			if err != nil {
				return fail(err)
			}
			if _, err := tmp.Seek(0, io.SeekStart); err != nil {
				return fail(err)
			}
			draft.File = &services.Attachment{
				Filename:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Size:        n,
				Body:        tmp,
			}
		}
	}
	return draft, cleanup, nil
}

func setIoTField(d *services.IoTDraft, name, value string) {
	switch name {
	case "name":
		d.Name = value
	case "email":
		d.Email = value
	case "number":
		d.Number = value
	case "message":
		d.Message = value
	}
}

// bodyTooLarge reports whether err came from the request size limit. The
// multipart reader does not always wrap the underlying error, but the limited
// body keeps returning it once the limit is hit.
func bodyTooLarge(err error, body io.Reader) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	_, err = body.Read(make([]byte, 1))
	return errors.As(err, &tooLarge)
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity
	}
	return services.HTTPStatus(services.ToServiceError(err))
}
