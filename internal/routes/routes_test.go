package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-leasegate/internal/auth"
	"go-leasegate/internal/control"
	"go-leasegate/internal/handlers"
	"go-leasegate/internal/lease"
	"go-leasegate/internal/metrics"
	"go-leasegate/internal/models"
	"go-leasegate/internal/settlement"
	"go-leasegate/internal/store"
	"go-leasegate/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func newRouter(t *testing.T) (*gin.Engine, *auth.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := store.NewMemoryStore()
	hotel := models.Asset{ID: "a-hotel", AssetNumber: "HTL-1", AssetType: models.AssetHotel}
	s.PutAsset(hotel)
	ref, _ := hotel.ResourceRef("101")
	s.PutResource(models.Resource{Ref: ref, UnitPrice: decimal.NewFromInt(100), Lease: models.Lease{Status: models.LeaseInactive}})

	issuer, err := auth.NewIssuer("svc", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	leases := lease.NewManager(time.Hour, nil)
	m := metrics.New(prometheus.NewRegistry())
	svc := settlement.NewService(settlement.Deps{Store: s, Leases: leases, Metrics: m})
	h := handlers.New(svc, nil, s, control.NewIngress(s, leases, control.LogPublisher{}))
	return SetupRouter("", h, webhook.NewGate("whsec"), webhook.NewSecretHash("flw-hash"), issuer, m), issuer
}

func TestPingAndMetrics(t *testing.T) {
	r, _ := newRouter(t)
	for _, path := range []string{"/ping", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, w.Code)
		}
	}
}

func TestControlRequiresServiceToken(t *testing.T) {
	r, issuer := newRouter(t)
	body := `{"action_type":"access","data":"lock"}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/assets/HTL-1/control/101", strings.NewReader(body)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous control = %d, want 401", w.Code)
	}

	tok, _ := issuer.ServiceToken()
	req := httptest.NewRequest(http.MethodPost, "/assets/HTL-1/control/101", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authorized control = %d (%s)", w.Code, w.Body)
	}
}

func TestWebhookRouteIsGated(t *testing.T) {
	r, _ := newRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"event":"charge.success"}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unsigned webhook = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/flutterwave", strings.NewReader(`{"event":"charge.completed"}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("flutterwave webhook without hash = %d, want 400", w.Code)
	}
}
