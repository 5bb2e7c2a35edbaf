package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims CustomerClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireTenantID(), CustomerAuth(testSecret))
	r.GET("/me", func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"customerId": p.CustomerID, "role": p.Role, "tenantId": p.TenantID})
	})
	return r
}

func doGet(r *gin.Engine, tenantID, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCustomerAuth_ValidToken(t *testing.T) {
	r := setupAuthRouter()
	token := signToken(t, jwt.SigningMethodHS256, CustomerClaims{
		CustomerID: "cust-1",
		TenantID:   "tenant-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := doGet(r, "tenant-1", "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"customerId":"cust-1","role":"customer","tenantId":"tenant-1"}`, w.Body.String())
}

func TestCustomerAuth_SubjectFallback(t *testing.T) {
	r := setupAuthRouter()
	token := signToken(t, jwt.SigningMethodHS256, CustomerClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "cust-9"},
	})

	w := doGet(r, "tenant-1", "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"customerId":"cust-9"`)
}

func TestCustomerAuth_EmptySecretRefusesEveryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireTenantID(), CustomerAuth(""))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomerClaims{CustomerID: "cust-1"}).SignedString([]byte(""))
	require.NoError(t, err)

	w := doGet(r, "tenant-1", "Bearer "+forged)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCustomerAuth_Rejections(t *testing.T) {
	expired := signToken(t, jwt.SigningMethodHS256, CustomerClaims{
		CustomerID: "cust-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	noCustomer := signToken(t, jwt.SigningMethodHS256, CustomerClaims{Email: "a@b.c"})
	otherTenant := signToken(t, jwt.SigningMethodHS256, CustomerClaims{CustomerID: "cust-1", TenantID: "tenant-2"})
	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomerClaims{CustomerID: "cust-1"}).SignedString([]byte("other"))
	require.NoError(t, err)

	tests := []struct {
		name          string
		tenantID      string
		authorization string
		wantStatus    int
	}{
		{"missing tenant", "", "Bearer " + noCustomer, http.StatusBadRequest},
		{"missing header", "tenant-1", "", http.StatusUnauthorized},
		{"wrong scheme", "tenant-1", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "tenant-1", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"expired token", "tenant-1", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong signing key", "tenant-1", "Bearer " + wrongKey, http.StatusUnauthorized},
		{"no customer id", "tenant-1", "Bearer " + noCustomer, http.StatusUnauthorized},
		{"other tenant", "tenant-1", "Bearer " + otherTenant, http.StatusForbidden},
	}

	r := setupAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, tt.tenantID, tt.authorization)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
