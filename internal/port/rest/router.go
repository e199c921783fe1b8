package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the cart API. m may be nil, in which case no metrics are
// recorded or exposed.
func NewRouter(h *CartHandler, m *metrics.MetricsManager) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	if m != nil {
		mux.Use(latencyMiddleware(m))
		mux.Handle("/metrics", m.Handler())
	}

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.Get("/api/catalog/products", h.HandleListProducts)

	mux.Route("/api/cart", func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Get("/", h.HandleGetCart)
		r.Delete("/", h.HandleClearCart)
		r.Post("/items", h.HandleAddItem)
		r.Patch("/items/{productID}/{size}", h.HandleUpdateQuantity)
		r.Delete("/items/{productID}/{size}", h.HandleRemoveItem)
	})

	return mux
}

func latencyMiddleware(m *metrics.MetricsManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequestLatency.WithLabelValues(route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		})
	}
}
