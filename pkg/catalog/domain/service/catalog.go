package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"catalogservice/pkg/catalog/domain/model"
	"catalogservice/pkg/catalog/view"
)

const DefaultCurrencySymbol = "R$"

type Event interface{ Type() string }
type EventDispatcher interface{ Dispatch(event Event) error }

type CatalogService interface {
	// Render never fails: store errors end up inside the page.
	Render(ctx context.Context, message string) model.Document
	Submit(ctx context.Context, body []byte, contentLength int64) model.Document
}

func NewCatalogService(connector model.Connector, dispatcher EventDispatcher, currencySymbol string) CatalogService {
	if currencySymbol == "" {
		currencySymbol = DefaultCurrencySymbol
	}
	return &catalogService{connector: connector, dispatcher: dispatcher, currency: currencySymbol}
}

type catalogService struct {
	connector  model.Connector
	dispatcher EventDispatcher
	currency   string
}

func (s *catalogService) Render(ctx context.Context, message string) model.Document {
	return s.render(ctx, message, view.FormEcho{})
}

func (s *catalogService) Submit(ctx context.Context, body []byte, contentLength int64) model.Document {
	form := decodeForm(body, contentLength)
	product := model.NewProduct{
		Name:  strings.TrimSpace(form.Get("name")),
		Price: strings.TrimSpace(form.Get("price")),
	}
	echo := view.FormEcho{Name: product.Name, Price: product.Price}

	if product.Name == "" || product.Price == "" {
		log.WithFields(log.Fields{"name": product.Name, "price": product.Price}).Info("Rejected incomplete submission")
		return s.render(ctx, model.ErrValidation.Error(), echo)
	}

	id, err := s.insert(ctx, product)
	if err != nil {
		log.WithError(err).WithField("name", product.Name).Error("Failed to add product")
		return s.render(ctx, fmt.Sprintf("Error adding product: %v", err), echo)
	}

	log.WithFields(log.Fields{"id": id, "name": product.Name, "price": product.Price}).Info("Added product")
	if err := s.dispatcher.Dispatch(model.ProductAdded{ProductID: id, Name: product.Name, Price: product.Price}); err != nil {
		log.WithError(err).Error("Failed to dispatch ProductAdded")
	}

	return s.render(ctx, fmt.Sprintf("Product %q added successfully.", product.Name), view.FormEcho{})
}

func (s *catalogService) insert(ctx context.Context, product model.NewProduct) (int64, error) {
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		return 0, err
	}
	defer closeConnection(conn)

	id, err := conn.InsertProduct(ctx, product)
	if err != nil {
		return 0, err
	}
	if err := conn.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *catalogService) render(ctx context.Context, message string, form view.FormEcho) model.Document {
	page := view.Page{Message: message, Form: form}

	products, err := s.listProducts(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load products")
		page.Error = fmt.Sprintf("Error loading products: %v", err)
	}
	for _, p := range products {
		page.Items = append(page.Items, s.formatLine(p))
	}

	body, err := view.Render(page)
	if err != nil {
		log.WithError(err).Error("Failed to render catalog")
		body = view.Fallback(err.Error())
	}
	return model.HTMLDocument(body)
}

func (s *catalogService) listProducts(ctx context.Context) ([]model.Product, error) {
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeConnection(conn)

	return conn.ListProducts(ctx)
}

func (s *catalogService) formatLine(p model.Product) string {
	return fmt.Sprintf("%s — %s %s", p.Name, s.currency, p.Price.StringFixed(2))
}

func closeConnection(conn model.Connection) {
	if err := conn.Close(); err != nil {
		log.WithError(err).Warn("Failed to close store connection")
	}
}

// decodeForm reads at most contentLength bytes of a urlencoded body.
// A missing length or a malformed body yields an empty form.
func decodeForm(body []byte, contentLength int64) url.Values {
	if contentLength <= 0 || len(body) == 0 {
		return url.Values{}
	}
	if int64(len(body)) > contentLength {
		body = body[:contentLength]
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		log.WithError(err).Warn("Malformed form body")
		return url.Values{}
	}
	return values
}
