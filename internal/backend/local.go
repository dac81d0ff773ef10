package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"orlandiv/internal/database"
	"orlandiv/internal/domain"
	"orlandiv/internal/util"
	apperrors "orlandiv/pkg/errors"
)

// LocalOptions configures a self-hosted backend
type LocalOptions struct {
	Secret        string
	TokenTTL      time.Duration
	UploadDir     string
	PublicBaseURL string
}

// Local is a self-hosted stand-in for the hosted platform: rows live in a
// gorm database, objects on disk, and admin sessions are signed JWTs.
type Local struct {
	db      *gorm.DB
	opts    LocalOptions
	revoked *util.RevocationList
}

// NewLocal creates a backend over an opened database
func NewLocal(db *gorm.DB, opts LocalOptions) *Local {
	return &Local{
		db:      db,
		opts:    opts,
		revoked: util.NewRevocationList(),
	}
}

var errInvalidCredentials = apperrors.New(apperrors.ErrCodeUnauthorized, "Invalid login credentials")

// Insert implements Backend
func (l *Local) Insert(ctx context.Context, rec domain.Record) error {
	if err := l.db.WithContext(ctx).Create(rec).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to save "+rec.TableName()+" row", err)
	}
	return nil
}

// List implements Backend
func (l *Local) List(ctx context.Context, table string, dest any) error {
	if _, ok := domain.NewRecord(table); !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("relation %q does not exist", table))
	}
	if err := l.db.WithContext(ctx).Table(table).Order("created_at DESC").Find(dest).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to fetch "+table, err)
	}
	return nil
}

// Delete implements Backend
func (l *Local) Delete(ctx context.Context, table, id string) error {
	model, ok := domain.NewRecord(table)
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("relation %q does not exist", table))
	}
	res := l.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to delete "+table+" row", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("no %s row with id %s", table, id))
	}
	return nil
}

// Upload implements Backend. Existing objects are never overwritten.
func (l *Local) Upload(ctx context.Context, bucket, path string, body io.Reader, contentType string) error {
	target, err := l.objectPath(bucket, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to prepare bucket", err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return apperrors.New(apperrors.ErrCodeBadRequest, "The resource already exists")
		}
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to store object", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		_ = os.Remove(target)
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to store object", err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to store object", err)
	}

	log.Debugf("[BACKEND] stored object %s/%s (%s)", bucket, path, contentType)
	return nil
}

// PublicURL implements Backend
func (l *Local) PublicURL(bucket, path string) string {
	return l.opts.PublicBaseURL + "/uploads/" + url.PathEscape(bucket) + "/" + escapeObjectPath(path)
}

// FileHandler serves stored objects under the /uploads/ prefix. Only
// exact object paths are served; bucket directories are never listed.
func (l *Local) FileHandler() http.Handler {
	return http.StripPrefix("/uploads/", http.FileServer(objectsOnly{http.Dir(l.opts.UploadDir)}))
}

// objectsOnly hides directories from http.FileServer
type objectsOnly struct {
	fs http.FileSystem
}

func (o objectsOnly) Open(name string) (http.File, error) {
	f, err := o.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func (l *Local) objectPath(bucket, path string) (string, error) {
	root := filepath.Join(l.opts.UploadDir, bucket)
	target := filepath.Join(root, filepath.FromSlash(path))
	if bucket == "" || strings.Contains(bucket, "..") || !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", apperrors.New(apperrors.ErrCodeBadRequest, "Invalid key: "+path)
	}
	return target, nil
}

// SignIn implements Backend
func (l *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user domain.User
	if err := l.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to look up user", err)
	}
	if !util.CheckPasswordHash(password, user.HashedPassword) {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "User is banned")
	}

	now := time.Now()
	user.LastLogin = &now
	if err := l.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		log.Warnf("[BACKEND] failed to record last login for %s: %v", user.Email, err)
	}

	token, claims, err := util.GenerateToken(&user, l.opts.Secret, l.opts.TokenTTL)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(l.opts.TokenTTL.Seconds()),
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        AuthUser{ID: user.ID, Email: user.Email},
	}, nil
}

// SignOut implements Backend
func (l *Local) SignOut(ctx context.Context, accessToken string) error {
	claims, err := util.ValidateToken(accessToken, l.opts.Secret)
	if err != nil {
		// Already unusable
		return nil
	}
	l.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	return nil
}

// User implements Backend
func (l *Local) User(ctx context.Context, accessToken string) (*AuthUser, error) {
	claims, err := util.ValidateToken(accessToken, l.opts.Secret)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUnauthorized, "invalid JWT", err)
	}
	if l.revoked.IsRevoked(claims.ID) {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "session has been signed out")
	}

	var user domain.User
	if err := l.db.WithContext(ctx).Where("id = ?", claims.Subject).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstream, "failed to look up user", err)
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "User is banned")
	}
	return &AuthUser{ID: user.ID, Email: user.Email}, nil
}

// Ping implements Backend
func (l *Local) Ping(ctx context.Context) error {
	return database.Ping(l.db)
}

// CreateUser adds an admin account. Used by the create_admin command.
func (l *Local) CreateUser(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing domain.User
	if err := l.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "email already registered")
	}

	hashed, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:          email,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if fullName != "" {
		user.FullName = &fullName
	}
	if err := l.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
