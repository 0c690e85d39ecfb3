package transport

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"catalogservice/pkg/catalog/domain/model"
	"catalogservice/pkg/catalog/domain/service"
	"catalogservice/pkg/catalog/infrastructure/static"
)

const maxFormBytes = 1 << 20

type Handler struct {
	catalog service.CatalogService
	assets  *static.Server
}

// Router dispatches, in order: GET / to the catalog, POST /add to the
// submission handler, anything under /static/ to the asset server, and
// everything else to a 404 page. metrics may be nil.
func Router(catalog service.CatalogService, assets *static.Server, metrics *Metrics) http.Handler {
	handler := &Handler{catalog: catalog, assets: assets}

	// Path cleaning would turn /static/../x into a redirect to /x.
	r := mux.NewRouter().SkipClean(true)
	r.HandleFunc("/", handler.catalogHandler).Methods(http.MethodGet)
	r.HandleFunc("/add", handler.addHandler).Methods(http.MethodPost)
	r.PathPrefix(static.Prefix).HandlerFunc(handler.staticHandler)
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFoundHandler)

	var h http.Handler = r
	if metrics != nil {
		h = metrics.Middleware(h)
	}
	return requestIDMiddleware(logMiddleware(h))
}

func (h *Handler) catalogHandler(w http.ResponseWriter, r *http.Request) {
	writeDocument(w, h.catalog.Render(r.Context(), ""))
}

func (h *Handler) addHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
	if err != nil {
		log.WithError(err).Warn("Failed to read form body")
		body = nil
	}
	writeDocument(w, h.catalog.Submit(r.Context(), body, r.ContentLength))
}

func (h *Handler) staticHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := h.assets.Open(r.URL.Path)
	if err != nil {
		log.WithField("path", r.URL.Path).Debug("Static asset not found")
		writeDocument(w, model.Document{
			Status:      http.StatusNotFound,
			ContentType: model.ContentTypePlain,
			Body:        []byte("404 Not Found"),
		})
		return
	}
	writeDocument(w, model.Document{Status: http.StatusOK, ContentType: asset.ContentType, Body: asset.Body})
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	writeDocument(w, model.NotFoundDocument())
}

func writeDocument(w http.ResponseWriter, doc model.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.WriteHeader(doc.Status)
	if _, err := w.Write(doc.Body); err != nil {
		log.WithError(err).Error("write response body")
	}
}
