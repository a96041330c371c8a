package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any API request, a valid API key must be accepted and a missing or
// invalid key must be rejected with 401.

func TestProperty_APIKeyAuthenticationValidity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	tempDir, err := os.MkdirTemp("", "taskmatrix_auth_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	apiKeyManager, err := NewAPIKeyManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create API key manager: %v", err)
	}

	validKey := apiKeyManager.GetCurrentKey()

	newAuthRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(APIKeyMiddleware(apiKeyManager))
		router.GET("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		return router
	}

	properties.Property("valid_api_key_accepted", prop.ForAll(
		func(_ int) bool {
			req, _ := http.NewRequest("GET", "/test", nil)
			req.Header.Set(APIKeyHeader, validKey)

			w := httptest.NewRecorder()
			newAuthRouter().ServeHTTP(w, req)

			return w.Code == http.StatusOK
		},
		gen.Int(),
	))

	properties.Property("missing_api_key_rejected", prop.ForAll(
		func(_ int) bool {
			req, _ := http.NewRequest("GET", "/test", nil)

			w := httptest.NewRecorder()
			newAuthRouter().ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.Int(),
	))

	properties.Property("invalid_api_key_rejected", prop.ForAll(
		func(invalidKey string) bool {
			if invalidKey == validKey {
				return true
			}

			req, _ := http.NewRequest("GET", "/test", nil)
			req.Header.Set(APIKeyHeader, invalidKey)

			w := httptest.NewRecorder()
			newAuthRouter().ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// ValidateKey must answer the same for repeated calls and only accept the
// current key.

func TestProperty_APIKeyValidationConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	tempDir, err := os.MkdirTemp("", "taskmatrix_key_validation_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	apiKeyManager, err := NewAPIKeyManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create API key manager: %v", err)
	}

	validKey := apiKeyManager.GetCurrentKey()

	properties.Property("validate_key_consistent_results", prop.ForAll(
		func(key string) bool {
			result1 := apiKeyManager.ValidateKey(key)
			result2 := apiKeyManager.ValidateKey(key)

			if result1 != result2 {
				return false
			}
			if key == validKey {
				return result1
			}
			return !result1
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// For any generated JWT, validation must round-trip the claims; tokens that
// were tampered with or signed by another secret must be rejected.

func TestProperty_JWTTokenValidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	jwtManager := NewJWTManager("test-secret-key", time.Hour)

	properties.Property("valid_jwt_token_accepted", prop.ForAll(
		func(userID uint, username string) bool {
			if userID == 0 || username == "" {
				return true
			}

			token, _, err := jwtManager.GenerateToken(userID, username)
			if err != nil {
				return false
			}

			claims, err := jwtManager.ValidateToken(token)
			if err != nil {
				return false
			}

			return claims.UserID == userID && claims.Username == username
		},
		gen.UIntRange(1, 10000),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.Property("invalid_jwt_token_rejected", prop.ForAll(
		func(invalidToken string) bool {
			_, err := jwtManager.ValidateToken(invalidToken)
			return err != nil
		},
		gen.AlphaString(),
	))

	properties.Property("tokens_from_different_secrets_rejected", prop.ForAll(
		func(userID uint, username string) bool {
			if userID == 0 || username == "" {
				return true
			}

			otherManager := NewJWTManager("different-secret", time.Hour)
			token, _, err := otherManager.GenerateToken(userID, username)
			if err != nil {
				return false
			}

			_, err = jwtManager.ValidateToken(token)
			return err != nil
		},
		gen.UIntRange(1, 10000),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t)
}

// After a key reset the old key must stop working, the new one must work,
// and the new key must survive a manager restart.

func TestProperty_KeyResetValidity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("old_key_invalid_after_reset", prop.ForAll(
		func(_ int) bool {
			tempDir, err := os.MkdirTemp("", "taskmatrix_reset_test_*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(tempDir)

			apiKeyManager, err := NewAPIKeyManager(tempDir)
			if err != nil {
				return false
			}

			oldKey := apiKeyManager.GetCurrentKey()
			if !apiKeyManager.ValidateKey(oldKey) {
				return false
			}

			newKey, err := apiKeyManager.ResetKey()
			if err != nil {
				return false
			}

			if apiKeyManager.ValidateKey(oldKey) {
				return false
			}
			if !apiKeyManager.ValidateKey(newKey) {
				return false
			}
			return oldKey != newKey
		},
		gen.Int(),
	))

	properties.Property("key_persists_after_reset", prop.ForAll(
		func(_ int) bool {
			tempDir, err := os.MkdirTemp("", "taskmatrix_persist_*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(tempDir)

			apiKeyManager1, err := NewAPIKeyManager(tempDir)
			if err != nil {
				return false
			}

			newKey, err := apiKeyManager1.ResetKey()
			if err != nil {
				return false
			}

			apiKeyManager2, err := NewAPIKeyManager(tempDir)
			if err != nil {
				return false
			}

			if apiKeyManager2.GetCurrentKey() != newKey {
				return false
			}
			return apiKeyManager2.ValidateKey(newKey)
		},
		gen.Int(),
	))

	properties.TestingRun(t)
}
