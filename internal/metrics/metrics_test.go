package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusLabel(t *testing.T) {
	if StatusLabel(nil) != StatusOK {
		t.Errorf("StatusLabel(nil) = %s", StatusLabel(nil))
	}
	if StatusLabel(errors.New("x")) != StatusError {
		t.Errorf("StatusLabel(err) = %s", StatusLabel(errors.New("x")))
	}
}

func TestMiddleware_LabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.PUT("/api/proposals/:id/accept", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := RequestTotal.WithLabelValues(http.MethodPut, "/api/proposals/:id/accept", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"p1", "p2"} {
		req := httptest.NewRequest(http.MethodPut, "/api/proposals/"+id+"/accept", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("route counter grew by %v, want 2", got)
	}

	unmatched := RequestTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before = testutil.ToFloat64(unmatched)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(unmatched) - before; got != 1 {
		t.Errorf("unmatched counter grew by %v, want 1", got)
	}
}
