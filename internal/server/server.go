package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"shiftlog/internal/actor"
	"shiftlog/internal/domain"
	"shiftlog/internal/engine"
	"shiftlog/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Log      zerolog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"invalid status transition new -> done"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError is the error envelope every endpoint returns.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// routes binds the workflow engine to huma operations.
type routes struct {
	engine engine.Engine
	log    zerolog.Logger
}

// New returns an HTTP handler exposing the feature review API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// Request schema failures are client errors like any other.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Shiftlog API", "0.1.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	rt := routes{engine: cfg.Engine, log: cfg.Log}
	registerDocs(router, basePath)
	registerHealth(group)
	rt.registerMe(group)
	rt.registerProjects(group)
	rt.registerFeatures(group)
	rt.registerComments(group)
	rt.registerNotifications(group)
	rt.registerActivity(group)
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

// fail maps workflow errors onto the envelope. Unknown errors are logged and
// reported without detail.
func (rt routes) fail(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var ue engine.UnauthorizedError
	if errors.As(err, &ue) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"action": ue.Action})
	}
	var te engine.InvalidTransitionError
	if errors.As(err, &te) {
		details := map[string]any{}
		if te.From != "" {
			details["from"] = te.From
		}
		if te.To != "" {
			details["to"] = te.To
		}
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), details)
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_failed", err.Error(), map[string]any{"field": ve.Field})
	}
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidTransition):
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, engine.ErrValidation):
		return newAPIError(http.StatusBadRequest, "validation_failed", err.Error(), nil)
	case errors.Is(err, engine.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrConflict):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	rt.log.Error().Err(err).Msg("request failed")
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// employee returns the active employee the auth middleware resolved.
func (rt routes) employee(ctx context.Context) (domain.Employee, huma.StatusError) {
	a := actor.FromContext(ctx)
	if a.IsAnonymous() {
		return domain.Employee{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	}
	emp, err := a.Require()
	if err != nil {
		return domain.Employee{}, rt.fail(err)
	}
	return emp, nil
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
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["employeeHeader"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: EmployeeHeader,
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"employeeHeader": {}},
	}
	oas.Security = security
	healthPath := path.Join("/", basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
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
    <title>Shiftlog API Docs</title>
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

func (rt routes) registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current employee",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: emp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/employees",
		Summary:     "List employees",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ActiveOnly bool `query:"active_only" default:"true"`
	}) (*struct {
		Body EmployeeList `json:"body"`
	}, error) {
		if _, authErr := rt.employee(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := rt.engine.ListEmployees(ctx, input.ActiveOnly)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body EmployeeList `json:"body"`
		}{Body: EmployeeList{Items: nonNil(items)}}, nil
	})
}

func (rt routes) registerProjects(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create test project",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.TestProject `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := rt.engine.CreateProject(ctx, emp, input.Body.Name, input.Body.Description)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body domain.TestProject `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List test projects",
	}, func(ctx context.Context, input *struct {
		ActiveOnly bool   `query:"active_only"`
		CreatedBy  string `query:"created_by"`
		Search     string `query:"search" maxLength:"200" doc:"Matches name or description, case-insensitive"`
	}) (*struct {
		Body ProjectList `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := rt.engine.ListProjects(ctx, emp, repo.ProjectFilter{
			ActiveOnly: input.ActiveOnly,
			CreatedBy:  input.CreatedBy,
			Search:     input.Search,
		})
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body ProjectList `json:"body"`
		}{Body: ProjectList{Items: nonNil(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get test project with counters",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.ProjectSummary `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := rt.engine.GetProject(ctx, emp, input.ProjectID)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body domain.ProjectSummary `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Update test project",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.TestProject `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := rt.engine.UpdateProject(ctx, emp, input.ProjectID, engine.ProjectUpdate{
			Description: input.Body.Description,
			IsActive:    input.Body.IsActive,
		})
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body domain.TestProject `json:"body"`
		}{Body: p}, nil
	})
}

type featureOutput struct {
	Body domain.Feature `json:"body"`
}

type featurePath struct {
	FeatureID string `path:"feature_id"`
}

func (rt routes) registerFeatures(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-feature",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/features",
		Summary:       "Create feature",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      CreateFeatureRequest `json:"body"`
	}) (*featureOutput, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := rt.engine.CreateFeature(ctx, emp, engine.FeatureInput{
			ProjectID:   input.ProjectID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    domain.Priority(input.Body.Priority),
		})
		if err != nil {
			return nil, rt.fail(err)
		}
		return &featureOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-features",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/features",
		Summary:     "List features by priority",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Status    string `query:"status" enum:"new,testing,rework,completed,done"`
		Priority  int    `query:"priority" minimum:"0" maximum:"4"`
		CreatedBy string `query:"created_by"`
		Search    string `query:"search" maxLength:"200" doc:"Matches title or description, case-insensitive"`
		Limit     int    `query:"limit" default:"100"`
	}) (*struct {
		Body FeatureList `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := rt.engine.ListFeatures(ctx, emp, repo.FeatureFilter{
			ProjectID: input.ProjectID,
			Status:    domain.FeatureStatus(input.Status),
			Priority:  domain.Priority(input.Priority),
			CreatedBy: input.CreatedBy,
			Search:    input.Search,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body FeatureList `json:"body"`
		}{Body: FeatureList{Items: nonNil(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-feature",
		Method:      http.MethodGet,
		Path:        "/features/{feature_id}",
		Summary:     "Get feature",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *featurePath) (*featureOutput, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := rt.engine.GetFeature(ctx, emp, input.FeatureID)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &featureOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-feature",
		Method:      http.MethodPatch,
		Path:        "/features/{feature_id}",
		Summary:     "Edit feature title, description or priority",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		FeatureID string               `path:"feature_id"`
		Body      UpdateFeatureRequest `json:"body"`
	}) (*featureOutput, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := rt.engine.UpdateFeature(ctx, emp, input.FeatureID, engine.FeatureUpdate{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    priorityPtr(input.Body.Priority),
		})
		if err != nil {
			return nil, rt.fail(err)
		}
		return &featureOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-feature-status",
		Method:      http.MethodPost,
		Path:        "/features/{feature_id}/status",
		Summary:     "Change feature status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		FeatureID string              `path:"feature_id"`
		Body      UpdateStatusRequest `json:"body"`
	}) (*featureOutput, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := rt.engine.UpdateStatus(ctx, emp, input.FeatureID, domain.FeatureStatus(input.Body.Status), input.Body.Comment)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &featureOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "feature-transitions",
		Method:      http.MethodGet,
		Path:        "/features/{feature_id}/transitions",
		Summary:     "Statuses the caller may move the feature to",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *featurePath) (*struct {
		Body TransitionsResponse `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := rt.engine.GetFeature(ctx, emp, input.FeatureID)
		if err != nil {
			return nil, rt.fail(err)
		}
		available, err := rt.engine.AvailableTransitions(ctx, emp, f.ID)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body TransitionsResponse `json:"body"`
		}{Body: TransitionsResponse{FeatureID: f.ID, Status: f.Status, Available: nonNil(available)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-feature",
		Method:      http.MethodPost,
		Path:        "/features/{feature_id}/complete",
		Summary:     "Mark a reworked feature completed",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *featurePath) (*featureOutput, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := rt.engine.MarkAsCompleted(ctx, emp, input.FeatureID)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &featureOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rework-feature",
		Method:      http.MethodPost,
		Path:        "/features/{feature_id}/rework",
		Summary:     "Return feature to rework",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		FeatureID string         `path:"feature_id"`
		Body      *ReworkRequest `json:"body,omitempty"`
	}) (*featureOutput, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		comment := ""
		if input.Body != nil {
			comment = input.Body.Comment
		}
		f, err := rt.engine.ReturnFeatureToRework(ctx, emp, input.FeatureID, comment)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &featureOutput{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "feature-status-history",
		Method:      http.MethodGet,
		Path:        "/features/{feature_id}/history",
		Summary:     "Feature status history, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *featurePath) (*struct {
		Body StatusHistoryList `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := rt.engine.StatusHistory(ctx, emp, input.FeatureID)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body StatusHistoryList `json:"body"`
		}{Body: StatusHistoryList{Items: nonNil(items)}}, nil
	})
}

type commentPath struct {
	FeatureID string `path:"feature_id"`
	CommentID string `path:"comment_id"`
}

func (rt routes) registerComments(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-comment",
		Method:        http.MethodPost,
		Path:          "/features/{feature_id}/comments",
		Summary:       "Add review comment",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		FeatureID string            `path:"feature_id"`
		Body      AddCommentRequest `json:"body"`
	}) (*struct {
		Body domain.FeatureComment `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := rt.engine.AddComment(ctx, emp, input.FeatureID, input.Body.Text, domain.CommentType(input.Body.Type))
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body domain.FeatureComment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/features/{feature_id}/comments",
		Summary:     "List comments, oldest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		FeatureID  string `path:"feature_id"`
		Unresolved bool   `query:"unresolved"`
	}) (*struct {
		Body CommentList `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := rt.engine.ListComments(ctx, emp, input.FeatureID, input.Unresolved)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body CommentList `json:"body"`
		}{Body: CommentList{Items: nonNil(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-comment",
		Method:      http.MethodPost,
		Path:        "/features/{feature_id}/comments/{comment_id}/resolve",
		Summary:     "Resolve comment and request review when none remain",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *commentPath) (*struct {
		Body engine.ResolveResult `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := rt.engine.ResolveCommentAndRequestReview(ctx, emp, input.FeatureID, input.CommentID)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body engine.ResolveResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "return-comment",
		Method:      http.MethodPost,
		Path:        "/features/{feature_id}/comments/{comment_id}/return",
		Summary:     "Return a resolved comment to rework",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		FeatureID string               `path:"feature_id"`
		CommentID string               `path:"comment_id"`
		Body      ReturnCommentRequest `json:"body"`
	}) (*struct {
		Body engine.ReturnResult `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := rt.engine.ReturnCommentToRework(ctx, emp, input.FeatureID, input.CommentID, input.Body.Reason)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body engine.ReturnResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "comment-history",
		Method:      http.MethodGet,
		Path:        "/comments/{comment_id}/history",
		Summary:     "Comment action history, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CommentID string `path:"comment_id"`
	}) (*struct {
		Body CommentHistoryList `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := rt.engine.CommentHistory(ctx, emp, input.CommentID)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body CommentHistoryList `json:"body"`
		}{Body: CommentHistoryList{Items: nonNil(items)}}, nil
	})
}

func (rt routes) registerNotifications(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "Caller's notifications, newest first",
	}, func(ctx context.Context, input *struct {
		Unread bool `query:"unread"`
		Limit  int  `query:"limit" default:"50"`
	}) (*struct {
		Body NotificationList `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := rt.engine.ListNotifications(ctx, emp, input.Unread, input.Limit)
		if err != nil {
			return nil, rt.fail(err)
		}
		unread, err := rt.engine.UnreadCount(ctx, emp)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body NotificationList `json:"body"`
		}{Body: NotificationList{Items: nonNil(items), UnreadCount: unread}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/read",
		Summary:     "Mark notification read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct{}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := rt.engine.MarkNotificationRead(ctx, emp, input.NotificationID); err != nil {
			return nil, rt.fail(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-all-notifications",
		Method:      http.MethodPost,
		Path:        "/notifications/read-all",
		Summary:     "Mark every notification read",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MarkAllReadResponse `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		n, err := rt.engine.MarkAllNotificationsRead(ctx, emp)
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body MarkAllReadResponse `json:"body"`
		}{Body: MarkAllReadResponse{Updated: n}}, nil
	})
}

func (rt routes) registerActivity(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "Audit log, newest first",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ActorID    string `query:"actor_id"`
		Action     string `query:"action"`
		EntityType string `query:"entity_type" enum:"feature,feature_comment,test_project,employee"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
	}) (*struct {
		Body ActivityList `json:"body"`
	}, error) {
		emp, authErr := rt.employee(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := rt.engine.ActivityTail(ctx, emp, repo.ActivityFilter{
			ActorID:    input.ActorID,
			Action:     input.Action,
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
			Limit:      normalizeLimit(input.Limit),
		})
		if err != nil {
			return nil, rt.fail(err)
		}
		return &struct {
			Body ActivityList `json:"body"`
		}{Body: ActivityList{Items: nonNil(items)}}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
