package commerce

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

// File is the metadata of an uploaded file
type File struct {
	ID  string
	URL string
}

type fileData struct {
	ID   string `json:"id"`
	Link struct {
		Href string `json:"href"`
	} `json:"link"`
}

// File returns file metadata, including the public download link
func (c *Client) File(ctx context.Context, id string) (File, error) {
	var resp struct {
		Data fileData `json:"data"`
	}
	err := c.do(ctx, request{
		op:     "get file",
		method: http.MethodGet,
		path:   "/v2/files/" + url.PathEscape(id),
		headers: map[string]string{
			"Accept": "application/json",
		},
	}, &resp)
	if err != nil {
		return File{}, err
	}
	return File{ID: resp.Data.ID, URL: resp.Data.Link.Href}, nil
}

// CreateFileFromURL registers a file hosted at fileURL and returns its ID
func (c *Client) CreateFileFromURL(ctx context.Context, fileURL string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("file_location", fileURL); err != nil {
		return "", fmt.Errorf("failed to build file upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build file upload: %w", err)
	}

	var resp struct {
		Data fileData `json:"data"`
	}
	err := c.do(ctx, request{
		op:      "create file",
		method:  http.MethodPost,
		path:    "/v2/files",
		raw:     &buf,
		rawType: mw.FormDataContentType(),
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}
