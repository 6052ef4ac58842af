package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	contentTypeHeaderConstant           = "Content-Type"
	acceptHeaderConstant                = "Accept"
	jsonContentTypeConstant             = "application/json"
	contentDispositionHeaderConstant    = "Content-Disposition"
	formFileDispositionTemplateConstant = `form-data; name="%s"; filename="%s"`
	defaultUploadContentTypeConstant    = "application/octet-stream"
	requestSentMessageConstant          = "remote request completed"
	requestFailedMessageConstant        = "remote request failed"
	methodFieldNameConstant             = "method"
	urlFieldNameConstant                = "url"
	statusCodeFieldNameConstant         = "status_code"
	durationFieldNameConstant           = "duration"
	successfulStatusLowerBoundConstant  = 200
	successfulStatusUpperBoundConstant  = 300
	queryStringSeparatorConstant        = "?"
	queryStringAppendSeparatorConstant  = "&"
)

// FileUpload is a single file sent as a multipart form field.
type FileUpload struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     []byte
}

// Request describes one outbound call. JSONBody and Upload are mutually exclusive.
type Request struct {
	Method   string
	URL      string
	Query    url.Values
	Headers  map[string]string
	JSONBody any
	Upload   *FileUpload
}

// Response carries the status, headers, and fully read body of a successful call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into target.
func (response Response) DecodeJSON(request Request, target any) error {
	if decodeError := json.Unmarshal(response.Body, target); decodeError != nil {
		return ResponseDecodingError{Method: request.Method, URL: request.URL, Cause: decodeError}
	}
	return nil
}

// Sender performs a single request. Non-success statuses are returned as RemoteRejectionError
// and calls that never produce a response as TransportError.
type Sender interface {
	Send(executionContext context.Context, request Request) (Response, error)
}

// HTTPSender implements Sender on net/http.
type HTTPSender struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSender constructs a sender. A nil client uses a client without timeout.
func NewHTTPSender(httpClient *http.Client, logger *zap.Logger) *HTTPSender {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSender{httpClient: httpClient, logger: logger}
}

// Send performs the request and reads the full response body.
func (sender *HTTPSender) Send(executionContext context.Context, request Request) (Response, error) {
	targetURL := composeURL(request.URL, request.Query)

	body, contentType, encodingError := encodeBody(request)
	if encodingError != nil {
		return Response{}, RequestEncodingError{Method: request.Method, URL: targetURL, Cause: encodingError}
	}

	httpRequest, requestError := http.NewRequestWithContext(executionContext, request.Method, targetURL, body)
	if requestError != nil {
		return Response{}, RequestEncodingError{Method: request.Method, URL: targetURL, Cause: requestError}
	}
	httpRequest.Header.Set(acceptHeaderConstant, jsonContentTypeConstant)
	if len(contentType) > 0 {
		httpRequest.Header.Set(contentTypeHeaderConstant, contentType)
	}
	for headerName, headerValue := range request.Headers {
		httpRequest.Header.Set(headerName, headerValue)
	}

	startedAt := time.Now()
	httpResponse, sendError := sender.httpClient.Do(httpRequest)
	if sendError != nil {
		sender.logger.Debug(requestFailedMessageConstant, zap.String(methodFieldNameConstant, request.Method), zap.String(urlFieldNameConstant, targetURL), zap.Error(sendError))
		return Response{}, TransportError{Method: request.Method, URL: targetURL, Cause: sendError}
	}
	defer httpResponse.Body.Close()

	responseBody, readError := io.ReadAll(httpResponse.Body)
	if readError != nil {
		return Response{}, TransportError{Method: request.Method, URL: targetURL, Cause: readError}
	}

	sender.logger.Debug(
		requestSentMessageConstant,
		zap.String(methodFieldNameConstant, request.Method),
		zap.String(urlFieldNameConstant, targetURL),
		zap.Int(statusCodeFieldNameConstant, httpResponse.StatusCode),
		zap.Duration(durationFieldNameConstant, time.Since(startedAt)),
	)

	if httpResponse.StatusCode < successfulStatusLowerBoundConstant || httpResponse.StatusCode >= successfulStatusUpperBoundConstant {
		return Response{}, RemoteRejectionError{
			Method:     request.Method,
			URL:        targetURL,
			StatusCode: httpResponse.StatusCode,
			Body:       responseBody,
		}
	}

	return Response{StatusCode: httpResponse.StatusCode, Header: httpResponse.Header, Body: responseBody}, nil
}

func composeURL(baseURL string, query url.Values) string {
	if len(query) == 0 {
		return baseURL
	}
	separator := queryStringSeparatorConstant
	if strings.Contains(baseURL, queryStringSeparatorConstant) {
		separator = queryStringAppendSeparatorConstant
	}
	return baseURL + separator + query.Encode()
}

func encodeBody(request Request) (io.Reader, string, error) {
	switch {
	case request.Upload != nil:
		return encodeMultipart(*request.Upload)
	case request.JSONBody != nil:
		payload, marshalError := json.Marshal(request.JSONBody)
		if marshalError != nil {
			return nil, "", marshalError
		}
		return bytes.NewReader(payload), jsonContentTypeConstant, nil
	default:
		return nil, "", nil
	}
}

func encodeMultipart(upload FileUpload) (io.Reader, string, error) {
	buffer := &bytes.Buffer{}
	formWriter := multipart.NewWriter(buffer)

	partContentType := upload.ContentType
	if len(strings.TrimSpace(partContentType)) == 0 {
		partContentType = defaultUploadContentTypeConstant
	}

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set(contentDispositionHeaderConstant, formFileDisposition(upload.FieldName, upload.FileName))
	partHeader.Set(contentTypeHeaderConstant, partContentType)

	partWriter, partError := formWriter.CreatePart(partHeader)
	if partError != nil {
		return nil, "", partError
	}
	if _, writeError := partWriter.Write(upload.Content); writeError != nil {
		return nil, "", writeError
	}
	if closeError := formWriter.Close(); closeError != nil {
		return nil, "", closeError
	}
	return buffer, formWriter.FormDataContentType(), nil
}

var formFieldEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func formFileDisposition(fieldName string, fileName string) string {
	return fmt.Sprintf(formFileDispositionTemplateConstant, formFieldEscaper.Replace(fieldName), formFieldEscaper.Replace(fileName))
}
