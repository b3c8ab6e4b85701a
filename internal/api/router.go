package api

import (
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/harrylevesque/commandapi/internal/auth"
	"github.com/harrylevesque/commandapi/internal/storage"
	"github.com/harrylevesque/commandapi/internal/utils"
)

const tracerName = "github.com/harrylevesque/commandapi/internal/api"

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Store      storage.CommandStore
	Authorizer auth.Authorizer
	Logger     zerolog.Logger
}

func NewRouter(deps Deps) *mux.Router {
	authz := deps.Authorizer
	if authz == nil {
		authz = auth.AllowAll{}
	}
	h := NewCommandHandler(deps.Store)

	chain := []mux.MiddlewareFunc{requestID, logRequests(deps.Logger), traceRequests(otel.Tracer(tracerName))}

	r := mux.NewRouter()
	r.Use(chain...)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/api/commands", h.List).Methods(http.MethodGet)
	r.Handle("/api/commands", requireIdentity(authz, h.Create)).Methods(http.MethodPost)
	// search must be registered before {id} so it is not parsed as an id.
	r.HandleFunc("/api/commands/search", h.Search).Methods(http.MethodGet)
	r.Handle("/api/commands/{id}", requireIdentity(authz, h.Get)).Methods(http.MethodGet)
	r.Handle("/api/commands/{id}", requireIdentity(authz, h.Update)).Methods(http.MethodPut)
	r.Handle("/api/commands/{id}", requireIdentity(authz, h.Delete)).Methods(http.MethodDelete)

	// Use only wraps matched routes, so the fallbacks get the chain here.
	r.NotFoundHandler = wrap(chain, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, utils.NotFound("no route for %s", req.URL.Path))
	}))
	r.MethodNotAllowedHandler = wrap(chain, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", strings.Join(allowedMethods(r, req.URL.Path), ", "))
		writeError(w, req, utils.MethodNotAllowed("%s not allowed on %s", req.Method, req.URL.Path))
	}))
	return r
}

func wrap(chain []mux.MiddlewareFunc, h http.Handler) http.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// allowedMethods lists the methods registered for routes matching path.
func allowedMethods(r *mux.Router, path string) []string {
	var methods []string
	_ = r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		expr, err := route.GetPathRegexp()
		if err != nil {
			return nil
		}
		re, err := regexp.Compile(expr)
		if err != nil || !re.MatchString(path) {
			return nil
		}
		ms, err := route.GetMethods()
		if err != nil {
			return nil
		}
		for _, m := range ms {
			if !slices.Contains(methods, m) {
				methods = append(methods, m)
			}
		}
		return nil
	})
	return methods
}
