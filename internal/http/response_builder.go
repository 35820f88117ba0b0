package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gestor/internal/stats"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries the failure kind so clients can branch on it.
type ErrorBody struct {
	Kind    stats.Kind `json:"kind"`
	Message string     `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	envelope   Envelope
	raw        []byte
}

// NewJSONResponse creates a builder for a 200 success envelope.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
		envelope:   Envelope{Success: true},
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the payload of a success envelope.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.envelope.Data = v
	return b
}

// Raw sends an already encoded envelope, as stored in the report cache.
func (b *JSONResponseBuilder) Raw(body []byte) *JSONResponseBuilder {
	b.raw = body
	return b
}

// Fail turns the response into an error envelope.
func (b *JSONResponseBuilder) Fail(kind stats.Kind, message string) *JSONResponseBuilder {
	b.statusCode = kind.StatusCode()
	b.envelope = Envelope{Success: false, Error: &ErrorBody{Kind: kind, Message: message}}
	return b
}

// Bytes encodes the envelope.
func (b *JSONResponseBuilder) Bytes() ([]byte, error) {
	if b.raw != nil {
		return b.raw, nil
	}
	return json.Marshal(b.envelope)
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body, err := b.Bytes()
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":{"kind":"DependencyFailure","message":"encode response"}}`)
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	// body may be shared with the report cache and must not be appended to.
	_, _ = w.Write(body)
	_, _ = w.Write([]byte{'\n'})
}

// ErrorResponse maps err onto the error envelope. Dependency failures hide
// their cause from the caller.
func ErrorResponse(err error) *JSONResponseBuilder {
	kind := stats.KindOf(err)
	message := "internal error"

	var se *stats.Error
	if kind != stats.KindDependencyFailure && errors.As(err, &se) {
		message = se.Message
	}
	return NewJSONResponse().Fail(kind, message)
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	return NewJSONResponse().
		Fail(stats.KindInvalidInput, "rate limit exceeded, please try again later").
		Status(http.StatusTooManyRequests)
}
