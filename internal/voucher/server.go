package voucher

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// maxSaveBody bounds the JSON body of a save request; two 10MB images grow by a third in base64
const maxSaveBody = 32 << 20

// Server handles HTTP requests for the scanner
type Server struct {
	service    *Service
	basicAuth  BasicAuth
	corsOrigin string
	mux        *http.ServeMux
}

// BasicAuth holds basic authentication credentials. The password is kept only as a bcrypt hash.
type BasicAuth struct {
	Username     string
	PasswordHash []byte
}

// NewBasicAuth hashes password. Empty credentials disable authentication.
func NewBasicAuth(username, password string) (BasicAuth, error) {
	if username == "" && password == "" {
		return BasicAuth{}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return BasicAuth{}, fmt.Errorf("hashing password: %w", err)
	}
	return BasicAuth{Username: username, PasswordHash: hash}, nil
}

func (a BasicAuth) enabled() bool {
	return a.Username != "" || len(a.PasswordHash) > 0
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth, corsOrigin string) *Server {
	return NewServerWithMux(service, basicAuth, corsOrigin, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, corsOrigin string, mux *http.ServeMux) *Server {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	s := &Server{
		service:    service,
		basicAuth:  basicAuth,
		corsOrigin: corsOrigin,
		mux:        mux,
	}
	s.registerRoutes()
	return s
}

func (s *Server) authenticate(r *http.Request) bool {
	if !s.basicAuth.enabled() {
		return true
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.basicAuth.PasswordHash, []byte(pass)) == nil
}

// corsMiddleware adds CORS headers and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="MICR Scanner"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/scanner/set-doctype/{docType}", s.requireAuth(s.handleSetDocType))
	s.mux.HandleFunc("GET /api/scanner/status", s.requireAuth(s.handleStatus))
	s.mux.HandleFunc("GET /api/scanner/devices", s.requireAuth(s.handleDevices))
	s.mux.HandleFunc("POST /api/scanner/connect/{deviceName}", s.requireAuth(s.handleConnectDevice))
	s.mux.HandleFunc("POST /api/scanner/connect", s.requireAuth(s.handleConnect))
	s.mux.HandleFunc("POST /api/scanner/scan/{voucherNo}", s.requireAuth(s.handleScan))
	s.mux.HandleFunc("POST /api/scanner/scan", s.requireAuth(s.handleScan))
	s.mux.HandleFunc("POST /api/scanner/save", s.requireAuth(s.handleSave))
	s.mux.HandleFunc("GET /api/scanner/view/{id}", s.requireAuth(s.handleView))
}

// Handler returns the mux wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
