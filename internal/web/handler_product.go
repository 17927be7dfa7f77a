package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vbonduro/ingredia/internal/domain"
	"github.com/vbonduro/ingredia/internal/service"
	"github.com/vbonduro/ingredia/internal/spreadsheet"
)

const recentProductsLimit = 20

type productView struct {
	Product          *domain.Product
	Answers          []*domain.Answer
	MaxQuestionChars int
}

func (s *Server) newProductView(product *domain.Product, answers []*domain.Answer) productView {
	return productView{Product: product, Answers: answers, MaxQuestionChars: s.service.QuestionLimit()}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	products, err := s.service.ListRecent(r.Context(), recentProductsLimit)
	if err != nil {
		s.fail(w, "list products failed", err)
		return
	}

	if err := s.renderPage(w,
		map[string]any{"Products": products},
		"base.html", "pages/index.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	product, answers, err := s.service.GetProduct(r.Context(), productID)
	if err != nil {
		s.fail(w, "get product failed", err)
		return
	}

	if err := s.renderPage(w,
		s.newProductView(product, answers),
		"base.html", "pages/product.html", "partials/product_panel.html", "partials/answer.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	productID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	answer, err := s.service.Ask(r.Context(), productID, r.FormValue("question"))
	if err != nil {
		s.fail(w, "answer question failed", err)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/products/"+strconv.FormatInt(productID, 10), http.StatusSeeOther)
		return
	}

	if err := s.renderPartial(w, "answer", answer, "partials/answer.html"); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

// handleRedescribe replaces the product's description with a fresh one from
// the model and re-renders the panel.
func (s *Server) handleRedescribe(w http.ResponseWriter, r *http.Request) {
	productID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	product, err := s.service.Redescribe(r.Context(), productID)
	if err != nil {
		s.fail(w, "redescribe product failed", err)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/products/"+strconv.FormatInt(productID, 10), http.StatusSeeOther)
		return
	}

	_, answers, err := s.service.GetProduct(r.Context(), productID)
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

// handleDeleteAnswer removes one answer. htmx swaps the answer's element for
// the empty body.
func (s *Server) handleDeleteAnswer(w http.ResponseWriter, r *http.Request) {
	productID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	answerID, err := strconv.ParseInt(r.PathValue("answerID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid answer id", http.StatusBadRequest)
		return
	}

	if err := s.service.DeleteAnswer(r.Context(), productID, answerID); err != nil {
		s.fail(w, "delete answer failed", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	if err := s.service.DeleteProduct(r.Context(), productID); err != nil {
		s.fail(w, "delete product failed", err)
		return
	}

	w.Header().Set("HX-Redirect", "/")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// fail maps a service error to a status code, writes it and logs it.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status, text := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "status", status, "error", err)
	} else {
		s.logger.Warn(msg, "status", status, "error", err)
	}
	http.Error(w, text, status)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrInvalidQuestion), errors.Is(err, service.ErrInvalidImage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, spreadsheet.ErrFileNotFound):
		return http.StatusInternalServerError, "spreadsheet data file is missing"
	case errors.Is(err, service.ErrModel):
		return http.StatusBadGateway, "the model could not process the request, please try again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
