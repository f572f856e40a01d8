package web

import (
	"net/http"

	"github.com/goccy/go-json"
)

const (
	apiVersion = "1.0"

	successJsonKey    = "success"
	errorJsonKey      = "error"
	messageJsonKey    = "message"
	apiVersionJsonKey = "api_version"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"
)

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody() GenericApiResponseBody {
	return map[string]any{
		successJsonKey:    true,
		apiVersionJsonKey: apiVersion,
	}
}

func NewGenericApiFailureResponseBody(err error) GenericApiResponseBody {
	return map[string]any{
		successJsonKey:    false,
		errorJsonKey:      err.Error(),
		apiVersionJsonKey: apiVersion,
	}
}

// NewGenericApiMessageResponseBody is an unsuccessful response that isn't an
// error condition, like a lookup for an unknown promo code.
func NewGenericApiMessageResponseBody(message string) GenericApiResponseBody {
	return map[string]any{
		successJsonKey:    false,
		messageJsonKey:    message,
		apiVersionJsonKey: apiVersion,
	}
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

func writeResponse(w http.ResponseWriter, statusCode int, body GenericApiResponseBody) error {
	w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
	w.WriteHeader(statusCode)
	_, err := w.Write([]byte(body.ToString()))
	return err
}
