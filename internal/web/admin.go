package web

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"orlandiv/internal/backend"
	"orlandiv/internal/services"
	apperrors "orlandiv/pkg/errors"
)

type adminData struct {
	User       *backend.AuthUser
	Email      string
	AuthError  string
	Dashboard  *services.Dashboard
	SampleWork formState[services.SampleWorkDraft]
}

type sessionKey struct{}

type adminSession struct {
	token string
	user  *backend.AuthUser
}

func sessionFrom(ctx context.Context) adminSession {
	sess, _ := ctx.Value(sessionKey{}).(adminSession)
	return sess
}

// requireSession lets the request through only with a valid session
// cookie. Anyone else is sent to the login form.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, user, ok := s.currentAdmin(w, r)
		if !ok {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, adminSession{token: token, user: user})
		next(w, r.WithContext(ctx))
	}
}

// currentAdmin resolves the session cookie. A stale cookie is cleared.
func (s *Server) currentAdmin(w http.ResponseWriter, r *http.Request) (string, *backend.AuthUser, bool) {
	cookie, err := r.Cookie(s.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return "", nil, false
	}
	user, err := s.opts.Admin.Authenticate(r.Context(), cookie.Value)
	if err != nil {
		log.Debugf("[ADMIN] session rejected: %s", apperrors.MessageOf(err))
		s.clearSessionCookie(w)
		return "", nil, false
	}
	return cookie.Value, user, true
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	token, user, ok := s.currentAdmin(w, r)
	if !ok {
		s.render(w, http.StatusOK, "admin.html", &adminData{})
		return
	}
	s.renderDashboard(w, r, http.StatusOK, token, &adminData{User: user})
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, token string, data *adminData) {
	data.Dashboard = s.opts.Admin.Dashboard(r.Context(), token)
	s.render(w, status, "admin.html", data)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	session, err := s.opts.Admin.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		s.render(w, statusOf(err), "admin.html", &adminData{
			Email:     email,
			AuthError: apperrors.MessageOf(err),
		})
		return
	}

	maxAge := session.ExpiresIn
	if maxAge <= 0 && !session.ExpiresAt.IsZero() {
		maxAge = int(time.Until(session.ExpiresAt).Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.opts.CookieName); err == nil {
		// The cookie goes regardless of what the backend says
		_ = s.opts.Admin.Logout(r.Context(), cookie.Value)
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleAddSampleWork(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	draft := services.SampleWorkDraft{
		Title:    r.PostFormValue("title"),
		Category: r.PostFormValue("category"),
		Image:    r.PostFormValue("image"),
		Features: r.PostFormValue("features"),
		Link:     r.PostFormValue("link"),
	}

	_, err := s.opts.Admin.AddSampleWork(r.Context(), sess.token, draft)
	if err == nil {
		http.Redirect(w, r, "/admin#sample-works", http.StatusSeeOther)
		return
	}

	data := &adminData{User: sess.user}
	data.SampleWork.Draft = draft
	status := data.SampleWork.settle(err, "")
	s.renderDashboard(w, r, status, sess.token, data)
}

func (s *Server) handleDeleteSampleWork(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	id := s.pathVar(r, "id")

	_, err := s.opts.Admin.DeleteSampleWork(r.Context(), sess.token, id)
	if err == nil {
		http.Redirect(w, r, "/admin#sample-works", http.StatusSeeOther)
		return
	}

	data := &adminData{User: sess.user}
	data.SampleWork.Error = apperrors.MessageOf(err)
	s.renderDashboard(w, r, statusOf(err), sess.token, data)
}
