package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hazmat-api/internal/handler"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

type tokenStub struct{}

func (tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "user-token":
		return &models.JWTClaims{UserID: "u-1", Role: models.RoleUser}, nil
	case "hod-token":
		return &models.JWTClaims{UserID: "h-1", Role: models.RoleHOD}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type expiredLinks struct{}

func (expiredLinks) MaxSize() int64 { return 1024 }

func (expiredLinks) Upload(ctx context.Context, actor workflow.Actor, containerID, fileName string, r io.Reader) (*models.Attachment, error) {
	return nil, appErrors.ErrForbidden
}

func (expiredLinks) List(ctx context.Context, actor workflow.Actor, containerID string) ([]models.Attachment, error) {
	return nil, nil
}

func (expiredLinks) Open(ctx context.Context, token string) (*models.Attachment, *os.File, error) {
	return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
}

func newTestEngine(audit *auditRecorder) *gin.Engine {
	return newTestEngineWith(Dependencies{Tokens: tokenStub{}, Audit: audit})
}

func newTestEngineWith(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, "/api/v1", Handlers{
		Auth:             handler.NewAuthHandler(nil),
		HazardClasses:    handler.NewHazardClassHandler(nil),
		Containers:       handler.NewContainerHandler(nil),
		DeletionRequests: handler.NewDeletionRequestHandler(nil),
		Attachments:      handler.NewAttachmentHandler(expiredLinks{}),
		Exports:          handler.NewExportHandler(nil),
		Metrics:          handler.NewMetricsHandler(nil, nil),
	}, deps)
	return r
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterHealth(t *testing.T) {
	r := newTestEngine(&auditRecorder{})
	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterRequiresToken(t *testing.T) {
	r := newTestEngine(&auditRecorder{})

	for _, path := range []string{"/api/v1/containers", "/api/v1/deletion-requests", "/api/v1/hazard-classes", "/api/v1/auth/me"} {
		w := serve(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := serve(r, http.MethodGet, "/api/v1/containers", "forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterExportRequiresAdminOrHOD(t *testing.T) {
	audit := &auditRecorder{}
	r := newTestEngine(audit)

	w := serve(r, http.MethodGet, "/api/v1/containers/export", "user-token")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "requires role admin or hod")
	assert.Empty(t, audit.logs)
}

func TestRegisterDownloadSkipsBearer(t *testing.T) {
	audit := &auditRecorder{}
	r := newTestEngine(audit)

	w := serve(r, http.MethodGet, "/api/v1/attachments/download/some-token", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "download link expired")
	assert.Empty(t, audit.logs)
}

func TestRegisterThrottlesOnlyAuthRoutes(t *testing.T) {
	var limited []string
	limiter := func(c *gin.Context) {
		limited = append(limited, c.FullPath())
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
	r := newTestEngineWith(Dependencies{Tokens: tokenStub{}, AuthLimiter: limiter})

	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/v1/auth/login", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/v1/auth/code", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/containers", "").Code)
	assert.Equal(t, []string{"/api/v1/auth/login", "/api/v1/auth/code"}, limited)
}
