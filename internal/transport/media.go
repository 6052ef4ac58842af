package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
)

const (
	acceptAnyContentTypeConstant = "*/*"
	fallbackFileNameConstant     = "file"
	emptyDownloadMessageConstant = "downloaded media is empty"
)

// ErrEmptyDownload indicates the media URL answered with no content.
var ErrEmptyDownload = errors.New(emptyDownloadMessageConstant)

// DownloadFile fetches a remote file and prepares it for re-upload under fieldName.
func DownloadFile(executionContext context.Context, sender Sender, fileURL string, fieldName string) (FileUpload, error) {
	response, downloadError := sender.Send(executionContext, Request{
		Method:  http.MethodGet,
		URL:     fileURL,
		Headers: map[string]string{acceptHeaderConstant: acceptAnyContentTypeConstant},
	})
	if downloadError != nil {
		return FileUpload{}, downloadError
	}
	if len(response.Body) == 0 {
		return FileUpload{}, ErrEmptyDownload
	}

	contentType := ""
	if response.Header != nil {
		contentType = response.Header.Get(contentTypeHeaderConstant)
	}
	if len(strings.TrimSpace(contentType)) == 0 {
		contentType = http.DetectContentType(response.Body)
	}

	return FileUpload{
		FieldName:   fieldName,
		FileName:    fileNameFromURL(fileURL),
		ContentType: contentType,
		Content:     response.Body,
	}, nil
}

func fileNameFromURL(fileURL string) string {
	parsedURL, parseError := url.Parse(fileURL)
	if parseError != nil {
		return fallbackFileNameConstant
	}
	baseName := path.Base(parsedURL.Path)
	if baseName == "." || baseName == "/" || len(baseName) == 0 {
		return fallbackFileNameConstant
	}
	return baseName
}

// Downloader fetches media files over an unscheduled sender.
type Downloader struct {
	sender Sender
}

// NewDownloader constructs a Downloader.
func NewDownloader(sender Sender) *Downloader {
	return &Downloader{sender: sender}
}

// Download fetches fileURL and labels it as the multipart field fieldName.
func (downloader *Downloader) Download(executionContext context.Context, fileURL string, fieldName string) (FileUpload, error) {
	return DownloadFile(executionContext, downloader.sender, fileURL, fieldName)
}
