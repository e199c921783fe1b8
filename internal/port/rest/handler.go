package rest

import (
	"errors"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type lineItemResponse struct {
	Product  *entity.Product `json:"product"`
	Size     string          `json:"size"`
	Quantity int             `json:"quantity"`
	Subtotal float64         `json:"subtotal"`
}

type cartResponse struct {
	Items []lineItemResponse `json:"items"`
	Total float64            `json:"total"`
	Count int                `json:"count"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CartHandler serves the cart and catalog endpoints used by the storefront.
type CartHandler struct {
	carts   *service.CartRegistry
	catalog service.CatalogService
	log     logger.Logger
}

func NewCartHandler(carts *service.CartRegistry, catalog service.CatalogService, log logger.Logger) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog, log: log}
}

// store resolves the session's cart. It writes a 503 and returns false when
// the saved cart cannot be read.
func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*service.CartStore, bool) {
	store, err := h.carts.Get(r.Context(), SessionFromContext(r.Context()))
	if err != nil {
		h.log.Errorf("Failed to load cart: %v", err)
		h.writeError(w, http.StatusServiceUnavailable, "cart is temporarily unavailable")
		return nil, false
	}
	return store, true
}

func (h *CartHandler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

func (h *CartHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.log.Errorf("HandleAddItem: failed to resolve product %s: %v", req.ProductID, err)
		h.writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	if !product.HasSize(req.Size) {
		h.writeError(w, http.StatusBadRequest, "size not offered for this product")
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.AddItem(r.Context(), product, req.Size, quantity); err != nil {
		if errors.Is(err, service.ErrCartUnavailable) {
			h.writeError(w, http.StatusServiceUnavailable, "cart is temporarily unavailable")
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeCart(w, http.StatusOK, store)
}

func (h *CartHandler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		h.writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}
	store.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), chi.URLParam(r, "size"), *req.Quantity)
	h.writeCart(w, http.StatusOK, store)
}

func (h *CartHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	store.RemoveItem(r.Context(), chi.URLParam(r, "productID"), chi.URLParam(r, "size"))
	h.writeCart(w, http.StatusOK, store)
}

func (h *CartHandler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	store.Clear(r.Context())
	h.writeCart(w, http.StatusOK, store)
}

func (h *CartHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.ListProducts(r.Context(), service.ProductFilter{
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Search:      q.Get("q"),
	})
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": products, "count": len(products)})
}

func (h *CartHandler) writeCart(w http.ResponseWriter, status int, store *service.CartStore) {
	items := store.Items()
	resp := cartResponse{Items: make([]lineItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, lineItemResponse{
			Product:  item.Product,
			Size:     item.Size,
			Quantity: item.Quantity,
			Subtotal: item.Subtotal(),
		})
		resp.Total += item.Subtotal()
		resp.Count += item.Quantity
	}
	h.writeJSON(w, status, resp)
}

func (h *CartHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *CartHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}
