// Package apitest runs an in-process clinic API stub for tests: seeded
// accounts, HttpOnly JWT session cookies with rotation on refresh, and the
// handful of domain endpoints the console's services call.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicops/clinic-console/internal/session"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// Seeded credentials available to every test.
const (
	AdminEmail    = "admin@clinic.test"
	AdminPassword = "letmein-admin"
	StaffEmail    = "staff@clinic.test"
	StaffPassword = "letmein-staff"
)

type account struct {
	user         session.User
	passwordHash []byte
}

// Counters records how often each auth endpoint was hit.
type Counters struct {
	Login    int
	Register int
	Logout   int
	Me       int
	Refresh  int
}

// Server is the stub backend. Failure knobs let tests force the next
// response or slow every handler down to trip the client timeout.
type Server struct {
	ts     *httptest.Server
	tokens tokenIssuer

	mu              sync.Mutex
	accounts        map[string]*account
	counters        Counters
	forcedStatus    int
	forcedMessage   string
	omitRefreshUser bool
	handlerDelay    time.Duration
}

func New() *Server {
	s := &Server{
		accounts: make(map[string]*account),
		tokens: tokenIssuer{
			secret:     []byte("apitest-signing-secret"),
			accessTTL:  15 * time.Minute,
			refreshTTL: 24 * 7 * time.Hour,
		},
	}

	s.seed(AdminEmail, AdminPassword, session.User{
		ID:          uuid.NewString(),
		UserType:    session.UserTypeManager,
		Email:       AdminEmail,
		FirstName:   "Ada",
		LastName:    "Suryani",
		Username:    "ada.suryani",
		IsActive:    true,
		Permissions: []string{"patients.read", "patients.write", "invoices.read", "invoices.write", "admin"},
		Roles:       []string{"admin"},
	})
	s.seed(StaffEmail, StaffPassword, session.User{
		ID:          uuid.NewString(),
		UserType:    session.UserTypeStaff,
		Email:       StaffEmail,
		FirstName:   "Budi",
		LastName:    "Hartono",
		Username:    "budi.hartono",
		IsActive:    true,
		Permissions: []string{"patients.read"},
		Roles:       []string{"front-desk"},
	})

	r := chi.NewRouter()
	r.Use(s.interceptor)

	r.Post("/api/v1/auth/login", s.handleLogin)
	r.Post("/api/v1/auth/register", s.handleRegister)
	r.Post("/api/v1/auth/logout", s.handleLogout)
	r.Get("/api/v1/auth/me", s.handleMe)
	r.Post("/api/v1/auth/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/v1/patients", s.handleListPatients)
		r.Post("/api/v1/patients", s.handleCreatePatient)
		r.Get("/api/v1/appointments", s.handleListAppointments)
		r.Post("/api/v1/appointments", s.handleCreateAppointment)
		r.Post("/api/v1/appointments/{id}/cancel", s.handleCancelAppointment)
		r.Get("/api/v1/billing/invoices", s.handleListInvoices)
		r.Post("/api/v1/billing/invoices", s.handleCreateInvoice)
		r.Post("/api/v1/billing/payments", s.handleRecordPayment)
		r.Get("/api/v1/billing/products", s.handleListProducts)
		r.Get("/api/v1/billing/expenses", s.handleListExpenses)
	})

	s.ts = httptest.NewServer(r)
	return s
}

func (s *Server) seed(email, password string, user session.User) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.accounts[email] = &account{user: user, passwordHash: hash}
}

func (s *Server) URL() string { return s.ts.URL }

func (s *Server) Close() { s.ts.Close() }

// FailNextWith makes the next request (whatever it is) answer with the
// given status and message.
func (s *Server) FailNextWith(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedStatus = status
	s.forcedMessage = message
}

// OmitUserOnRefresh makes /auth/refresh rotate cookies without returning a
// user payload, like backends that only reply 204-style bodies.
func (s *Server) OmitUserOnRefresh(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitRefreshUser = omit
}

// DelayHandlers makes every handler sleep before answering, to exercise the
// client-side request timeout.
func (s *Server) DelayHandlers(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlerDelay = d
}

func (s *Server) Count() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// interceptor applies the failure knobs before any handler runs.
func (s *Server) interceptor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, message := s.forcedStatus, s.forcedMessage
		s.forcedStatus, s.forcedMessage = 0, ""
		delay := s.handlerDelay
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if status != 0 {
			writeError(w, status, message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- auth handlers ----

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.bump(func(c *Counters) { c.Login++ })

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[body.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.setSessionCookies(w, acct.user)
	writeJSON(w, http.StatusOK, map[string]any{"user": acct.user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.bump(func(c *Counters) { c.Register++ })

	var body struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[body.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "account already exists")
		return
	}
	s.mu.Unlock()

	user := session.User{
		ID:          uuid.NewString(),
		UserType:    session.UserTypeStaff,
		Email:       body.Email,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		IsActive:    true,
		Permissions: []string{"patients.read"},
	}
	s.mu.Lock()
	hash, _ := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.MinCost)
	s.accounts[body.Email] = &account{user: user, passwordHash: hash}
	s.mu.Unlock()

	s.setSessionCookies(w, user)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.bump(func(c *Counters) { c.Logout++ })
	clearCookie(w, accessCookie)
	clearCookie(w, refreshCookie)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.bump(func(c *Counters) { c.Me++ })

	user, ok := s.userFromCookie(r, accessCookie)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.bump(func(c *Counters) { c.Refresh++ })

	user, ok := s.userFromCookie(r, refreshCookie)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	s.setSessionCookies(w, user)

	s.mu.Lock()
	omit := s.omitRefreshUser
	s.mu.Unlock()
	if omit {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.userFromCookie(r, accessCookie); !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) userFromCookie(r *http.Request, name string) (session.User, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return session.User{}, false
	}
	claims, err := s.tokens.parse(cookie.Value)
	if err != nil {
		return session.User{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[claims.Email]
	if !ok {
		return session.User{}, false
	}
	return acct.user, true
}

func (s *Server) setSessionCookies(w http.ResponseWriter, user session.User) {
	access, _ := s.tokens.issue(user, s.tokens.accessTTL)
	refresh, _ := s.tokens.issue(user, s.tokens.refreshTTL)
	setCookie(w, accessCookie, access, s.tokens.accessTTL)
	setCookie(w, refreshCookie, refresh, s.tokens.refreshTTL)
}

func (s *Server) bump(fn func(*Counters)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.counters)
}

// ---- domain handlers: canned data, enough for the thin clients ----

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"patients": []map[string]any{
		{"id": "p-1001", "first_name": "Siti", "last_name": "Rahma", "email": "siti@example.com", "phone": "+62811111", "date_of_birth": "1987-04-12"},
		{"id": "p-1002", "first_name": "Joko", "last_name": "Wibowo", "email": "joko@example.com", "phone": "+62822222", "date_of_birth": "1992-11-03"},
	}})
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body["id"] = uuid.NewString()
	writeJSON(w, http.StatusCreated, map[string]any{"patient": body})
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"appointments": []map[string]any{
		{"id": "a-2001", "patient_id": "p-1001", "practitioner": "dr. Lestari", "scheduled_at": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339), "status": "scheduled"},
	}})
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body["id"] = uuid.NewString()
	body["status"] = "scheduled"
	writeJSON(w, http.StatusCreated, map[string]any{"appointment": body})
}

func (s *Server) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"appointment": map[string]any{
		"id": chi.URLParam(r, "id"), "status": "cancelled",
	}})
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"invoices": []map[string]any{
		{"id": "i-3001", "patient_id": "p-1001", "number": "INV-2026-0001", "amount_cents": 250000, "status": "open"},
	}})
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body["id"] = uuid.NewString()
	body["status"] = "open"
	writeJSON(w, http.StatusCreated, map[string]any{"invoice": body})
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body["id"] = uuid.NewString()
	body["status"] = "settled"
	writeJSON(w, http.StatusCreated, map[string]any{"payment": body})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"products": []map[string]any{
		{"id": "pr-4001", "name": "Paracetamol 500mg", "price_cents": 1500, "stock": 320},
		{"id": "pr-4002", "name": "Consultation (general)", "price_cents": 75000, "stock": 0},
	}})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"expenses": []map[string]any{
		{"id": "e-5001", "description": "Disposable gloves", "amount_cents": 42000, "category": "supplies"},
	}})
}

// ---- response helpers ----

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"code": status, "message": message})
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(ttl),
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
