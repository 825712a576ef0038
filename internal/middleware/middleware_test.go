package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/auth"
	"go-leasegate/internal/webhook"

	"github.com/gin-gonic/gin"
)

type countingRejections struct{ reasons []string }

func (c *countingRejections) WebhookRejected(reason string) { c.reasons = append(c.reasons, reason) }

func init() { gin.SetMode(gin.TestMode) }

// recordErrors keeps the errors the rest of the chain attached to the context.
func recordErrors(errs *[]error) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		for _, e := range c.Errors {
			*errs = append(*errs, e.Err)
		}
	}
}

func webhookRouter(gate *webhook.Gate, rej RejectionCounter, seen *string) *gin.Engine {
	r := gin.New()
	r.POST("/webhook", VerifyWebhook(gate, rej), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		*seen = string(b)
		c.Status(http.StatusOK)
	})
	return r
}

func TestVerifyWebhookPassesBodyThrough(t *testing.T) {
	gate := webhook.NewGate("whsec")
	body := `{"event":"charge.success"}`
	var seen string
	rej := &countingRejections{}

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(SignatureHeader, gate.Sign([]byte(body)))
	w := httptest.NewRecorder()
	webhookRouter(gate, rej, &seen).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seen != body {
		t.Fatalf("handler saw %q, want the original body", seen)
	}
	if len(rej.reasons) != 0 {
		t.Fatalf("unexpected rejections: %v", rej.reasons)
	}
}

func TestVerifyWebhookRejects(t *testing.T) {
	gate := webhook.NewGate("whsec")
	cases := []struct {
		name   string
		sig    string
		reason string
	}{
		{"missing", "", "missing_signature"},
		{"forged", gate.Sign([]byte(`{"event":"other"}`)), "invalid_signature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			rej := &countingRejections{}
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"event":"charge.success"}`))
			if tc.sig != "" {
				req.Header.Set(SignatureHeader, tc.sig)
			}
			w := httptest.NewRecorder()
			webhookRouter(gate, rej, &seen).ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if seen != "" {
				t.Fatal("handler ran for a rejected webhook")
			}
			if len(rej.reasons) != 1 || rej.reasons[0] != tc.reason {
				t.Fatalf("rejections = %v, want [%s]", rej.reasons, tc.reason)
			}
		})
	}
}

func TestWebhookRejectionCarriesSignatureError(t *testing.T) {
	var errs []error
	r := gin.New()
	r.Use(recordErrors(&errs))
	r.POST("/webhook", VerifyWebhook(webhook.NewGate("whsec"), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set(SignatureHeader, "deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(errs) != 1 || !errors.Is(errs[0], apperr.ErrSignature) {
		t.Fatalf("context errors = %v, want one ErrSignature", errs)
	}
}

func TestVerifySecretHash(t *testing.T) {
	hash := webhook.NewSecretHash("flw-hash")
	cases := []struct {
		name   string
		header string
		want   int
		reason string
	}{
		{"valid", "flw-hash", http.StatusOK, ""},
		{"missing", "", http.StatusBadRequest, "missing_signature"},
		{"wrong", "guess", http.StatusBadRequest, "invalid_signature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var errs []error
			rej := &countingRejections{}
			r := gin.New()
			r.Use(recordErrors(&errs))
			r.POST("/webhook/flutterwave", VerifySecretHash(hash, rej), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/webhook/flutterwave", strings.NewReader(`{}`))
			if tc.header != "" {
				req.Header.Set(SecretHashHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.reason == "" {
				if len(rej.reasons) != 0 || len(errs) != 0 {
					t.Fatalf("accepted request recorded %v / %v", rej.reasons, errs)
				}
				return
			}
			if len(rej.reasons) != 1 || rej.reasons[0] != tc.reason {
				t.Fatalf("rejections = %v, want [%s]", rej.reasons, tc.reason)
			}
			if len(errs) != 1 || !errors.Is(errs[0], apperr.ErrSignature) {
				t.Fatalf("context errors = %v, want ErrSignature", errs)
			}
		})
	}
}

func TestRequireServiceToken(t *testing.T) {
	issuer, err := auth.NewIssuer("svc-secret", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	r := gin.New()
	r.POST("/control", RequireServiceToken(issuer, auth.ScopeControl), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("serviceSubject"))
	})

	tok, _ := issuer.ServiceToken()
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + tok, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", tok, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/control", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
