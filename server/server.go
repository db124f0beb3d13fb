package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-portal-client/auth"
	"github.com/jrsteele09/go-portal-client/gate"
	"github.com/jrsteele09/go-portal-client/internal/config"
	"github.com/jrsteele09/go-portal-client/portalapi"
)

// Services holds everything the gateway serves from.
type Services struct {
	Controller *auth.Controller  // Session owner
	Flows      *auth.Flows       // Login, password and profile flows
	Gate       *gate.Gate        // Screen access decisions
	API        *portalapi.Client // Backend client; its Facade also drives the /api proxy
}

// Server is the local portal gateway: session endpoints, gated screen
// navigation and a credentialed proxy to the backend API.
type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	services Services
	proxy    *httputil.ReverseProxy
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithGatherer sets the registry served on /metrics (default prometheus.DefaultGatherer).
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg config.Config, services Services, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if services.Controller == nil {
		return nil, errors.New("[Server New] controller is required")
	}
	if services.Flows == nil {
		return nil, errors.New("[Server New] flows are required")
	}
	if services.Gate == nil {
		return nil, errors.New("[Server New] gate is required")
	}
	if services.API == nil {
		return nil, errors.New("[Server New] API client is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		services: services,
		gatherer: prometheus.DefaultGatherer,
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.proxy = s.newAPIProxy()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	s.logger.Info().Msg(fmt.Sprintf("[%-19s] %s", colourMethod(method), path))
}

func (s *Server) logError(method, path string, err error) {
	s.logger.Error().Msg(fmt.Sprintf("[%-19s] %s %s", colourMethod(method), path, Red+err.Error()+ResetColor))
}
