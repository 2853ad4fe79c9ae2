package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/codec"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

const maxBodyBytes = 4 << 20

// GET v1/catalog?page=N (200 OK)
// GET v1/catalog/facets (200 OK)
// GET v1/filters (200 OK)
// PUT v1/filters JSON FilterForm (204 No content, 400 Bad request)

type CatalogHandler struct {
	browser port.CatalogBrowser
	filters port.FiltersSetter
}

func RegisterCatalog(
	mux *http.ServeMux, browser port.CatalogBrowser, filters port.FiltersSetter,
) {
	h := CatalogHandler{browser, filters}
	mux.HandleFunc("GET /v1/catalog", h.GetCatalog)
	mux.HandleFunc("GET /v1/catalog/facets", h.GetFacets)
	mux.HandleFunc("GET /v1/filters", h.GetFilters)
	mux.HandleFunc("PUT /v1/filters", h.PutFilters)
}

func (h CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetCatalog"

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, op, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}

	writeJSON(w, op, http.StatusOK, catalogFromResult(h.browser.Browse(page)))
}

func (h CatalogHandler) GetFacets(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetFacets"
	writeJSON(w, op, http.StatusOK, facetsFromDomain(h.browser.Facets()))
}

func (h CatalogHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetFilters"
	writeJSON(w, op, http.StatusOK, filterFromDomain(h.filters.Filters()))
}

func (h CatalogHandler) PutFilters(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.PutFilters"

	var f FilterForm
	if !decodeValid(w, r, op, &f) {
		return
	}

	h.filters.SetFilters(f.toDomain())
	w.WriteHeader(http.StatusNoContent)
}

// GET v1/products (200 OK)
// PUT v1/products JSON ProductsForm (204 No content, 400 Bad request or duplicate ids)
// POST v1/products JSON ProductForm (201 Created, 400 Bad request, 409 Conflict)
// GET v1/products/export (200 OK)
// GET v1/products/{id} (200 OK, 404 Not found)
// PUT v1/products/{id} JSON ProductForm (204 No content, 400 Bad request)
// DELETE v1/products/{id} (204 No content)

type ProductsHandler struct {
	reader port.ProductsReader
	editor port.ProductsEditor
}

func RegisterProducts(
	mux *http.ServeMux, reader port.ProductsReader, editor port.ProductsEditor,
) {
	h := ProductsHandler{reader, editor}
	mux.HandleFunc("GET /v1/products", h.GetProducts)
	mux.HandleFunc("PUT /v1/products", h.PutProducts)
	mux.HandleFunc("POST /v1/products", h.PostProduct)
	mux.HandleFunc("GET /v1/products/export", h.Export)
	mux.HandleFunc("GET /v1/products/{id}", h.GetProduct)
	mux.HandleFunc("PUT /v1/products/{id}", h.PutProduct)
	mux.HandleFunc("DELETE /v1/products/{id}", h.DeleteProduct)
}

func (h ProductsHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProducts"
	writeJSON(w, op, http.StatusOK, viewsFromProducts(h.reader.Products(), h.reader.Now()))
}

func (h ProductsHandler) PutProducts(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PutProducts"

	var form ProductsForm
	if !decodeValid(w, r, op, &form) {
		return
	}

	ps := form.toDomain()
	for i := range ps {
		if ps[i].ID == "" {
			ps[i].ID = uuid.NewString()
		}
	}

	if err := h.editor.SetProducts(r.Context(), ps); err != nil {
		if errors.Is(err, domain.ErrDuplicateID) {
			writeError(w, op, http.StatusBadRequest, "product ids must be unique")
			return
		}
		writeError(w, op, http.StatusInternalServerError, "failed to replace products")
		slog.Error("failed to replace products", "op", op, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	slog.Info("products replaced", "op", op, "nProducts", len(ps))
}

func (h ProductsHandler) PostProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PostProduct"

	var form ProductForm
	if !decodeValid(w, r, op, &form) {
		return
	}

	p := form.toDomain()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := h.editor.AddProduct(r.Context(), p); err != nil {
		if errors.Is(err, domain.ErrDuplicateID) {
			writeError(w, op, http.StatusConflict, "product id already exists")
			return
		}
		writeError(w, op, http.StatusInternalServerError, "failed to add product")
		slog.Error("failed to add product", "op", op, "err", err)
		return
	}
	writeJSON(w, op, http.StatusCreated, viewFromProduct(p, h.reader.Now()))
	slog.Info("product added", "op", op, "id", p.ID)
}

func (h ProductsHandler) Export(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.Export"

	b, err := h.reader.ExportJSON()
	if err != nil {
		writeError(w, op, http.StatusInternalServerError, "failed to export products")
		slog.Error("failed to export", "op", op, "err", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="store.json"`)
	if _, err := w.Write(b); err != nil {
		slog.Error("failed to write response body", "op", op, "err", err)
	}
}

func (h ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProduct"

	p, err := h.reader.Product(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, op, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, op, http.StatusInternalServerError, "failed to read product")
		return
	}
	writeJSON(w, op, http.StatusOK, viewFromProduct(p, h.reader.Now()))
}

func (h ProductsHandler) PutProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PutProduct"

	var form ProductForm
	if !decodeValid(w, r, op, &form) {
		return
	}

	p := form.toDomain()
	p.ID = r.PathValue("id")

	h.editor.UpdateProduct(r.Context(), p)
	w.WriteHeader(http.StatusNoContent)
}

func (h ProductsHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.editor.DeleteProduct(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// GET v1/cart (200 OK)
// POST v1/cart/{id} (204 No content, 404 Not found)
// DELETE v1/cart/{id}?decrement=true (204 No content)
// POST v1/cart/checkout JSON DeliveryForm (200 OK, 400 Bad request, 409 Conflict)

type CartHandler struct {
	cart     port.CartEditor
	products port.ProductsReader
	checkout port.CheckoutMaker
}

func RegisterCart(
	mux *http.ServeMux,
	cart port.CartEditor,
	products port.ProductsReader,
	checkout port.CheckoutMaker,
) {
	h := CartHandler{cart, products, checkout}
	mux.HandleFunc("GET /v1/cart", h.GetCart)
	mux.HandleFunc("POST /v1/cart/checkout", h.Checkout)
	mux.HandleFunc("POST /v1/cart/{id}", h.AddToCart)
	mux.HandleFunc("DELETE /v1/cart/{id}", h.RemoveFromCart)
}

func (h CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.GetCart"

	lines := h.cart.Cart()
	res := CartResponse{
		Lines: make([]codec.CartLine, len(lines)),
		Total: h.cart.Total(),
	}
	for i, l := range lines {
		res.Lines[i] = codec.CartLine{Product: codec.FromProduct(l.Product), Quantity: l.Quantity}
		res.Count += l.Quantity
	}
	writeJSON(w, op, http.StatusOK, res)
}

func (h CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.AddToCart"

	p, err := h.products.Product(r.PathValue("id"))
	if err != nil {
		writeError(w, op, http.StatusNotFound, "product not found")
		return
	}

	h.cart.AddToCart(r.Context(), p)
	w.WriteHeader(http.StatusNoContent)
}

func (h CartHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.RemoveFromCart"

	decrement := false
	if v := r.URL.Query().Get("decrement"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, op, http.StatusBadRequest, "invalid decrement")
			return
		}
		decrement = b
	}

	h.cart.RemoveFromCart(r.Context(), r.PathValue("id"), decrement)
	w.WriteHeader(http.StatusNoContent)
}

func (h CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.Checkout"

	var form DeliveryForm
	if !decodeValid(w, r, op, &form) {
		return
	}

	order, err := h.checkout.Checkout(form.toDomain())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			writeError(w, op, http.StatusConflict, "cart is empty")
			return
		}
		writeError(w, op, http.StatusInternalServerError, "failed to checkout")
		slog.Error("failed to checkout", "op", op, "err", err)
		return
	}

	writeJSON(w, op, http.StatusOK, OrderResponse{
		Total:   order.Total,
		Message: order.Message,
		URL:     order.URL,
	})
}

// POST api/save-store JSON {"products": [...]} (200 OK, 400 Bad request or duplicate ids, 500)
// GET api/health (200 OK)

type StoreHandler struct {
	writer port.DocumentWriter
}

func RegisterStore(mux *http.ServeMux, writer port.DocumentWriter) {
	h := StoreHandler{writer}
	mux.HandleFunc("POST /api/save-store", h.SaveStore)
	mux.HandleFunc("GET /api/health", h.Health)
}

func (h StoreHandler) SaveStore(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.SaveStore"

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, op, http.StatusBadRequest, "failed to read body")
		return
	}

	doc, err := codec.UnmarshalDocument(data)
	if err != nil {
		writeError(w, op, http.StatusBadRequest, "invalid JSON data")
		slog.Warn("failed to parse JSON", "op", op, "err", err)
		return
	}

	if err := domain.CheckUniqueIDs(doc.Products); err != nil {
		writeError(w, op, http.StatusBadRequest, "product ids must be unique")
		slog.Warn("rejected document", "op", op, "err", err)
		return
	}

	if err := h.writer.WriteDocument(r.Context(), doc); err != nil {
		writeError(w, op, http.StatusInternalServerError, "failed to save store")
		slog.Error("failed to write document", "op", op, "err", err)
		return
	}

	writeJSON(w, op, http.StatusOK, map[string]bool{"success": true})
	slog.Info("store saved", "op", op, "nProducts", len(doc.Products))
}

func (h StoreHandler) Health(w http.ResponseWriter, r *http.Request) {
	const op = "StoreHandler.Health"
	writeJSON(w, op, http.StatusOK, map[string]string{"status": "ok"})
}

// GET v1/products/{id}/countdown (200 OK text/event-stream, 404 Not found)

type CountdownHandler struct {
	products port.ProductsReader
	watcher  port.CountdownWatcher
}

func RegisterCountdown(
	mux *http.ServeMux, products port.ProductsReader, watcher port.CountdownWatcher,
) {
	h := CountdownHandler{products, watcher}
	mux.HandleFunc("GET /v1/products/{id}/countdown", h.Stream)
}

// Stream sends one event per tick until the offer expires or the client
// goes away.
func (h CountdownHandler) Stream(w http.ResponseWriter, r *http.Request) {
	const op = "CountdownHandler.Stream"
	log := slog.With("op", op)

	p, err := h.products.Product(r.PathValue("id"))
	if err != nil {
		writeError(w, op, http.StatusNotFound, "product not found")
		return
	}
	if !p.SpecialOffer || p.OfferEndsAt == nil {
		writeError(w, op, http.StatusNotFound, "product has no offer")
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ticks := h.watcher.Watch(r.Context(), p.ID, *p.OfferEndsAt)
	for t := range ticks {
		err := writeEvent(w, "tick", TickResponse{
			ProductID:        t.ProductID,
			RemainingSeconds: int64(t.Remaining / time.Second),
			Label:            t.Label,
			Expired:          t.Expired,
		})
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			log.Debug("client is gone", "err", err)
			return
		}
	}
}

func writeEvent(w io.Writer, event string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "event: "+event+"\ndata: "); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n\n")
	return err
}

func decodeValid(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, op, http.StatusBadRequest, "invalid JSON data")
		slog.Warn("failed to parse JSON", "op", op, "err", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, op, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, op string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "op", op, "err", err)
	}
}

func writeError(w http.ResponseWriter, op string, status int, msg string) {
	writeJSON(w, op, status, ErrorResponse{Error: msg})
}
