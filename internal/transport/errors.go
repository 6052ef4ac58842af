package transport

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	transportErrorTemplateConstant        = "%s %s: %v"
	remoteRejectionErrorTemplateConstant  = "%s %s: HTTP %d: %s"
	responseDecodingErrorTemplateConstant = "%s %s: response decoding failed: %v"
	requestEncodingErrorTemplateConstant  = "%s %s: request encoding failed: %v"
	rejectionBodyPreviewLimitConstant     = 200
	rejectionBodyTruncationSuffixConstant = "..."
	emptyRejectionBodyPlaceholderConstant = "<empty body>"
)

// TransportError reports a request that produced no response.
type TransportError struct {
	Method string
	URL    string
	Cause  error
}

// Error describes the transport failure.
func (transportError TransportError) Error() string {
	return fmt.Sprintf(transportErrorTemplateConstant, transportError.Method, transportError.URL, transportError.Cause)
}

// Unwrap exposes the underlying network error.
func (transportError TransportError) Unwrap() error {
	return transportError.Cause
}

// RemoteRejectionError reports a non-success status returned by the remote service.
type RemoteRejectionError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

type rejectionEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Message extracts the remote's explanatory message, falling back to a body preview.
func (rejectionError RemoteRejectionError) Message() string {
	var envelope rejectionEnvelope
	if decodeError := json.Unmarshal(rejectionError.Body, &envelope); decodeError == nil {
		if trimmedMessage := strings.TrimSpace(envelope.Message); len(trimmedMessage) > 0 {
			return trimmedMessage
		}
		if trimmedError := strings.TrimSpace(envelope.Error); len(trimmedError) > 0 {
			return trimmedError
		}
	}
	return previewBody(rejectionError.Body)
}

// Error describes the rejection.
func (rejectionError RemoteRejectionError) Error() string {
	return fmt.Sprintf(remoteRejectionErrorTemplateConstant, rejectionError.Method, rejectionError.URL, rejectionError.StatusCode, rejectionError.Message())
}

// ResponseDecodingError reports a success response whose body did not match the expected shape.
type ResponseDecodingError struct {
	Method string
	URL    string
	Cause  error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Method, decodingError.URL, decodingError.Cause)
}

// Unwrap exposes the JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// RequestEncodingError reports a request body that could not be serialized.
type RequestEncodingError struct {
	Method string
	URL    string
	Cause  error
}

// Error describes the encoding failure.
func (encodingError RequestEncodingError) Error() string {
	return fmt.Sprintf(requestEncodingErrorTemplateConstant, encodingError.Method, encodingError.URL, encodingError.Cause)
}

// Unwrap exposes the serialization error.
func (encodingError RequestEncodingError) Unwrap() error {
	return encodingError.Cause
}

func previewBody(body []byte) string {
	trimmedBody := strings.TrimSpace(string(body))
	if len(trimmedBody) == 0 {
		return emptyRejectionBodyPlaceholderConstant
	}
	if utf8.RuneCountInString(trimmedBody) <= rejectionBodyPreviewLimitConstant {
		return trimmedBody
	}
	previewRunes := []rune(trimmedBody)[:rejectionBodyPreviewLimitConstant]
	return string(previewRunes) + rejectionBodyTruncationSuffixConstant
}
