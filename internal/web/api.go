package web

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	goahttp "goa.design/goa/v3/http"
	goamiddleware "goa.design/goa/v3/middleware"

	"orlandiv/internal/domain"
	"orlandiv/internal/services"
)

// submissionResult is returned for every stored API submission
type submissionResult struct {
	Message string        `json:"message"`
	Record  domain.Record `json:"record"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// errorResponse is the body of every API error
type errorResponse struct {
	Name      string                `json:"name"`
	Message   string                `json:"message"`
	Fields    []services.FieldError `json:"fields,omitempty"`
	RequestID string                `json:"request_id,omitempty"`
}

func (s *Server) apiListSampleWorks(w http.ResponseWriter, r *http.Request) {
	works, err := s.opts.Admin.ListSampleWorks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, works)
}

func (s *Server) apiSubmitQuote(w http.ResponseWriter, r *http.Request) {
	var draft services.QuoteDraft
	if err := decode(r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}
	quote, err := s.opts.Submissions.SubmitQuote(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, submissionResult{Message: services.QuoteConfirmation, Record: quote})
}

func (s *Server) apiSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var draft services.MessageDraft
	if err := decode(r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := s.opts.Submissions.SubmitMessage(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, submissionResult{Message: services.MessageConfirmation, Record: msg})
}

// apiSubmitIoTRequest accepts JSON, or multipart when a file is attached
func (s *Server) apiSubmitIoTRequest(w http.ResponseWriter, r *http.Request) {
	var draft services.IoTDraft
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		parsed, cleanup, err := s.parseIoTForm(w, r)
		defer cleanup()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		draft = parsed
	} else if err := decode(r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := s.opts.Submissions.SubmitIoTRequest(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, submissionResult{Message: services.IoTConfirmation, Record: req})
}

func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	var p loginPayload
	if err := decode(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.opts.Admin.Login(r.Context(), p.Email, p.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, session)
}

func (s *Server) apiLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Admin.Logout(r.Context(), sessionFrom(r.Context()).token); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiAdminList(w http.ResponseWriter, r *http.Request) {
	table := strings.ReplaceAll(s.pathVar(r, "table"), "-", "_")
	rows, err := s.opts.Admin.List(r.Context(), sessionFrom(r.Context()).token, table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, rows)
}

func (s *Server) apiAddSampleWork(w http.ResponseWriter, r *http.Request) {
	var draft services.SampleWorkDraft
	if err := decode(r, &draft); err != nil {
		s.writeError(w, r, err)
		return
	}
	work, err := s.opts.Admin.AddSampleWork(r.Context(), sessionFrom(r.Context()).token, draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, work)
}

func (s *Server) apiDeleteSampleWork(w http.ResponseWriter, r *http.Request) {
	works, err := s.opts.Admin.DeleteSampleWork(r.Context(), sessionFrom(r.Context()).token, s.pathVar(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, works)
}

// requireBearer authenticates API calls with an "Authorization: Bearer"
// access token issued by the login endpoint.
func (s *Server) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeError(w, r, services.Unauthorized("Authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			s.writeError(w, r, services.Unauthorized("Invalid authorization header format"))
			return
		}

		user, err := s.opts.Admin.Authenticate(r.Context(), parts[1])
		if err != nil {
			s.writeError(w, r, services.Unauthorized("Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, adminSession{token: parts[1], user: user})
		next(w, r.WithContext(ctx))
	}
}

func decode(r *http.Request, v any) error {
	if err := goahttp.RequestDecoder(r).Decode(v); err != nil {
		log.Debugf("[API] %s %s: undecodable body: %v", r.Method, r.URL.Path, err)
		return services.BadRequest("Request body must be valid JSON.")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	ctx := context.WithValue(r.Context(), goahttp.AcceptTypeKey, r.Header.Get("Accept"))
	enc := goahttp.ResponseEncoder(ctx, w)
	w.WriteHeader(status)
	if err := enc.Encode(body); err != nil {
		log.Errorf("[API] failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := services.ToServiceError(err)
	status := services.HTTPStatus(se)
	if status >= http.StatusInternalServerError {
		log.Errorf("[API] %s %s: %v", r.Method, r.URL.Path, err)
	}

	body := errorResponse{Name: se.Name, Message: se.Message}
	if id, ok := r.Context().Value(goamiddleware.RequestIDKey).(string); ok {
		body.RequestID = id
	}
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		body.Fields = verrs
	}
	s.writeJSON(w, r, status, body)
}
