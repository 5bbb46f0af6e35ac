package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/lingkungan/pkg/logger"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// OpenAPIValidator checks requests against the embedded OpenAPI document.
// Paths in the document are relative to basePath.
type OpenAPIValidator struct {
	router   routers.Router
	basePath string
	logger   *slog.Logger
}

func NewOpenAPIValidator(document []byte, basePath string, lg *slog.Logger) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	// Servers only describe the public prefix; matching is done on the trimmed path.
	doc.Servers = nil

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &OpenAPIValidator{
		router:   router,
		basePath: strings.TrimSuffix(basePath, "/"),
		logger:   lg,
	}, nil
}

// Middleware rejects requests that violate the document with 400. Routes the
// document does not describe pass through.
func (v *OpenAPIValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := r.Clone(r.Context())
		req.URL.Path = strings.TrimPrefix(r.URL.Path, v.basePath)
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}

		route, pathParams, err := v.router.FindRoute(req)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.Body != nil && r.Body != http.NoBody {
			data, err := io.ReadAll(r.Body)
			if err != nil {
				writeValidationError(w, "Gagal membaca permintaan")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(data))
			req.Body = io.NopCloser(bytes.NewReader(data))
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         false,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			logger.From(r.Context(), v.logger).Warn("request failed openapi validation",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err)
			writeValidationError(w, validationMessage(err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return "Permintaan tidak valid"
	}
	if reqErr.Parameter != nil {
		return fmt.Sprintf("Parameter %s tidak valid", reqErr.Parameter.Name)
	}
	if reqErr.RequestBody != nil {
		return "Isi permintaan tidak valid"
	}
	return "Permintaan tidak valid"
}

func writeValidationError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
