package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/completion-report-api/internal/models"
	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
)

type tokenStub struct {
	claims *models.JWTClaims
}

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.paths = append(o.paths, method+" "+path)
	o.statuses = append(o.statuses, status)
}

func newRouter(claims *models.JWTClaims, capabilities ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(tokenStub{claims: claims}))
	r.GET("/courses/:courseId", RequireCapabilities(capabilities...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": ClaimsFromContext(c).UserID})
	})
	return r
}

func serve(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/courses/7", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	r := newRouter(&models.JWTClaims{UserID: 3})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer bad").Code)

	w := serve(r, "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":3}`, w.Body.String())
}

func TestRequireCapabilities(t *testing.T) {
	viewer := &models.JWTClaims{UserID: 3, Capabilities: []string{models.CapabilityCompletionView}}

	w := serve(newRouter(viewer, models.CapabilityCompletionView), "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(newRouter(viewer, models.CapabilityCompletionView, models.CapabilityProgressView), "Bearer good")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "report/progress:view")

	admin := &models.JWTClaims{UserID: 1, Role: models.RoleAdmin}
	w = serve(newRouter(admin, models.CapabilityProgressView), "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/courses/:courseId", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	serve(r, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, []string{"GET /courses/:courseId", "GET unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusAccepted, http.StatusNotFound}, observer.statuses)
}
