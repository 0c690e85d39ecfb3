package model

import "net/http"

const (
	ContentTypeHTML  = "text/html; charset=utf-8"
	ContentTypePlain = "text/plain"
)

// Document is a rendered response body with its status and content type.
type Document struct {
	Status      int
	ContentType string
	Body        []byte
}

func HTMLDocument(body []byte) Document {
	return Document{Status: http.StatusOK, ContentType: ContentTypeHTML, Body: body}
}

func NotFoundDocument() Document {
	return Document{
		Status:      http.StatusNotFound,
		ContentType: ContentTypeHTML,
		Body:        []byte("<h1>404 Not Found</h1>"),
	}
}
