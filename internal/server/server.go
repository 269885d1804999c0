package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"reflect"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spycats/internal/engine"
	"spycats/internal/logging"
	"spycats/internal/metrics"
)

// Config for the HTTP API handler.
type Config struct {
	Engine      engine.Engine
	BasePath    string
	CORSOrigins []string
	Logger      *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"conflict"`
	Message string         `json:"message" example:"cat 3 already has mission 1"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the spy cat API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(withRequestID)
	router.Use(observe(logger))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(corsHandler(cfg.CORSOrigins))
	}
	hcfg := huma.DefaultConfig("Spy Cat Agency API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	router.Handle("/metrics", metrics.Handler())
	registerHealth(group)
	registerCats(group, cfg.Engine)
	registerMissions(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case errors.Is(err, engine.ErrValidation):
		return newAPIError(http.StatusBadRequest, "validation_failed", msg, nil)
	case errors.Is(err, engine.ErrConflict):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case errors.Is(err, engine.ErrDependencyUnavailable):
		return newAPIError(http.StatusServiceUnavailable, "dependency_unavailable", msg, nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusServiceUnavailable, "unavailable", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusServiceUnavailable:
		return "dependency_unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil || oas.Components == nil || oas.Components.Schemas == nil {
		return
	}
	errSchema := oas.Components.Schemas.Schema(reflect.TypeOf(apiError{}), false, "ApiError")
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: errSchema,
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Spy Cat Agency API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type catPath struct {
	CatID int64 `path:"cat_id"`
}

type missionPath struct {
	MissionID int64 `path:"mission_id"`
}

type targetPath struct {
	MissionID int64 `path:"mission_id"`
	TargetID  int64 `path:"target_id"`
}

type okOutput struct {
	Body OKResponse `json:"body"`
}

func ok() *okOutput { return &okOutput{Body: OKResponse{OK: true}} }

func registerCats(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-cat",
		Method:        http.MethodPost,
		Path:          "/cats",
		Summary:       "Create cat",
		Description:   "Creates a cat after checking its breed against the reference catalog.",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateCatRequest `json:"body"`
	}) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := e.CreateCat(ctx, engine.CatCreateOptions{
			Name:       input.Body.Name,
			Experience: input.Body.Experience,
			Breed:      input.Body.Breed,
			Salary:     input.Body.Salary,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cats",
		Method:      http.MethodGet,
		Path:        "/cats",
		Summary:     "List cats",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []CatResponse `json:"body"`
	}, error) {
		items, err := e.ListCats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CatResponse `json:"body"`
		}{Body: mapCats(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-cat",
		Method:      http.MethodGet,
		Path:        "/cats/{cat_id}",
		Summary:     "Get cat",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *catPath) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := e.GetCat(ctx, input.CatID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-cat-salary",
		Method:      http.MethodPut,
		Path:        "/cats/{cat_id}",
		Summary:     "Update cat salary",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CatID int64            `path:"cat_id"`
		Body  UpdateCatRequest `json:"body"`
	}) (*struct {
		Body CatResponse `json:"body"`
	}, error) {
		c, err := e.UpdateCatSalary(ctx, input.CatID, input.Body.Salary)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CatResponse `json:"body"`
		}{Body: catResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-cat",
		Method:      http.MethodDelete,
		Path:        "/cats/{cat_id}",
		Summary:     "Delete cat",
		Description: "Deletes a cat that holds no mission.",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *catPath) (*okOutput, error) {
		if err := e.DeleteCat(ctx, input.CatID); err != nil {
			return nil, handleError(err)
		}
		return ok(), nil
	})
}

func registerMissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Create mission",
		Description:   "Creates an unassigned mission with 1 to 3 targets.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest `json:"body"`
	}) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		m, err := e.CreateMission(ctx, newTargets(input.Body.Targets))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []MissionResponse `json:"body"`
	}, error) {
		items, err := e.ListMissions(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []MissionResponse `json:"body"`
		}{Body: mapMissions(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{mission_id}",
		Summary:     "Get mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *missionPath) (*struct {
		Body MissionResponse `json:"body"`
	}, error) {
		m, err := e.GetMission(ctx, input.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse `json:"body"`
		}{Body: missionResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-mission",
		Method:      http.MethodDelete,
		Path:        "/missions/{mission_id}",
		Summary:     "Delete mission",
		Description: "Deletes a mission and its targets while no cat is assigned.",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *missionPath) (*okOutput, error) {
		if err := e.DeleteMission(ctx, input.MissionID); err != nil {
			return nil, handleError(err)
		}
		return ok(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-cat",
		Method:      http.MethodPatch,
		Path:        "/missions/{mission_id}/assign",
		Summary:     "Assign cat to mission",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		MissionID int64            `path:"mission_id"`
		Body      AssignCatRequest `json:"body"`
	}) (*okOutput, error) {
		if err := e.AssignCat(ctx, input.MissionID, input.Body.CatID); err != nil {
			return nil, handleError(err)
		}
		return ok(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-target-notes",
		Method:      http.MethodPatch,
		Path:        "/missions/{mission_id}/targets/{target_id}/notes",
		Summary:     "Update target notes",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		MissionID int64              `path:"mission_id"`
		TargetID  int64              `path:"target_id"`
		Body      UpdateNotesRequest `json:"body"`
	}) (*okOutput, error) {
		if err := e.UpdateTargetNotes(ctx, input.MissionID, input.TargetID, input.Body.Notes); err != nil {
			return nil, handleError(err)
		}
		return ok(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-target",
		Method:      http.MethodPatch,
		Path:        "/missions/{mission_id}/targets/{target_id}/complete",
		Summary:     "Complete target",
		Description: "Completing the last open target completes the mission and releases its cat.",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *targetPath) (*okOutput, error) {
		if err := e.CompleteTarget(ctx, input.MissionID, input.TargetID); err != nil {
			return nil, handleError(err)
		}
		return ok(), nil
	})
}
