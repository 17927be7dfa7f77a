package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// multipartOverhead is the allowance for multipart headers and boundaries on
// top of the image itself.
const multipartOverhead = 64 << 10

// allowedImageTypes is the set of MIME types accepted for uploaded product
// images. net/http.DetectContentType sniffs both from their magic bytes.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// AllowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func AllowedImageMIME(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

func (s *Server) handleUploadProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxImageBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, s.tooLargeMessage(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file required", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(io.LimitReader(file, s.maxImageBytes+1))
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		s.logger.Error("read upload failed", "error", err)
		return
	}
	if int64(len(imageData)) > s.maxImageBytes {
		http.Error(w, s.tooLargeMessage(), http.StatusRequestEntityTooLarge)
		return
	}

	mimeType, ok := AllowedImageMIME(imageData)
	if !ok {
		http.Error(w, "unsupported image format: upload a JPG or PNG", http.StatusUnsupportedMediaType)
		return
	}

	product, err := s.service.UploadProduct(r.Context(), imageData, mimeType)
	if err != nil {
		s.fail(w, "upload product failed", err)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, fmt.Sprintf("/products/%d", product.ID), http.StatusSeeOther)
		return
	}

	_, answers, err := s.service.GetProduct(r.Context(), product.ID)
	if err != nil {
		s.fail(w, "load product failed", err)
		return
	}
	if err := s.renderPartial(w, "product_panel", s.newProductView(product, answers),
		"partials/product_panel.html", "partials/answer.html",
	); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	productID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	reader, mimeType, err := s.service.OpenImage(r.Context(), productID)
	if err != nil {
		s.fail(w, "open image failed", err)
		return
	}
	defer closeWithLog(reader, "image reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write image failed", "product_id", productID, "error", err)
	}
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("image too large: limit is %d bytes", s.maxImageBytes)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
