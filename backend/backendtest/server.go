// Package backendtest runs an in-process fake of the messaging backend.
// Conversations are stored under the ordered (user1, user2) pair, so a
// single /messages/chat lookup only sees one direction, like the real service.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// Server is a fake backend. Create it with New and Close it when done.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]user
	chats    map[string][]message
	requests map[string]int
	failures map[string]int
	now      func() time.Time
}

type user struct {
	Name    string
	Address string
}

type message struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	IsRead    bool   `json:"is_read"`
	IsDeleted bool   `json:"is_deleted"`
	IsMedia   bool   `json:"is_media"`
}

// New starts a fake backend mounted under /api/v1
func New() *Server {
	s := &Server{
		users:    make(map[string]user),
		chats:    make(map[string][]message),
		requests: make(map[string]int),
		failures: make(map[string]int),
		now:      time.Now,
	}

	router := mux.NewRouter().StrictSlash(true)
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.countAndFail)
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/users/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/users/{address}/exists", s.exists).Methods(http.MethodGet)
	api.HandleFunc("/users/{address}", s.getUser).Methods(http.MethodGet)
	api.HandleFunc("/messages/send", s.send).Methods(http.MethodPost)
	api.HandleFunc("/messages/chat", s.chat).Methods(http.MethodPost)

	s.Server = httptest.NewServer(router)
	return s
}

// APIURL is the base URL a backend.Client should use
func (s *Server) APIURL() string { return s.URL + "/api/v1" }

// SetClock replaces the time source used for new messages
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddUser registers address directly
func (s *Server) AddUser(address, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(address)] = user{Name: name, Address: address}
}

// Registered reports whether address is known
func (s *Server) Registered(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[strings.ToLower(address)]
	return ok
}

// Seed stores a message from sender to recipient with the given unix timestamp
func (s *Server) Seed(sender, recipient, content string, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pairKey(sender, recipient)
	s.chats[k] = append(s.chats[k], message{Sender: sender, Content: content, Timestamp: ts})
}

// FailPath makes every request to path (relative to /api/v1) answer with status
func (s *Server) FailPath(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// Requests returns how many requests hit path; an empty path counts all of them
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path != "" {
		return s.requests[path]
	}
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

func (s *Server) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1")
		s.mu.Lock()
		s.requests[path]++
		status, fail := s.failures[path]
		s.mu.Unlock()

		if fail {
			writeDetail(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               "healthy",
		"web3_connected":       true,
		"contract_initialized": true,
		"network":              "Fake",
		"contract_address":     "0x0000000000000000000000000000000000000000",
	})
}

func (s *Server) exists(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "exists": s.Registered(addr)})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	s.mu.Lock()
	u, ok := s.users[strings.ToLower(addr)]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("User %s not found", addr))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":            u.Name,
		"status":          "Hey there! I am using chain chat",
		"profile_picture": "",
		"user_address":    u.Address,
		"status_expiry":   0,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address    string `json:"address"`
		Name       string `json:"name"`
		PrivateKey string `json:"private_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.PrivateKey == "" {
		writeDetail(w, http.StatusBadRequest, "Private key is required for signing the transaction")
		return
	}
	if s.Registered(req.Address) {
		writeDetail(w, http.StatusConflict, fmt.Sprintf("User %s is already registered", req.Address))
		return
	}
	s.AddUser(req.Address, req.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "User registered successfully",
		"user_address": req.Address,
		"name":         req.Name,
		"status":       "success",
	})
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAddress string `json:"from_address"`
		ToAddress   string `json:"to_address"`
		Content     string `json:"content"`
		IsMedia     bool   `json:"is_media"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !s.Registered(req.FromAddress) {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Sender %s is not registered", req.FromAddress))
		return
	}
	if !s.Registered(req.ToAddress) {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Receiver %s is not registered", req.ToAddress))
		return
	}

	s.mu.Lock()
	k := pairKey(req.FromAddress, req.ToAddress)
	s.chats[k] = append(s.chats[k], message{
		Sender:    req.FromAddress,
		Content:   req.Content,
		Timestamp: s.now().Unix(),
		IsMedia:   req.IsMedia,
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Message sent successfully",
		"from":    req.FromAddress,
		"to":      req.ToAddress,
		"status":  "success",
	})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User1Address string `json:"user1_address"`
		User2Address string `json:"user2_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.mu.Lock()
	stored := s.chats[pairKey(req.User1Address, req.User2Address)]
	out := make([]map[string]any, 0, len(stored))
	for i, m := range stored {
		out = append(out, map[string]any{
			"index":      i,
			"sender":     m.Sender,
			"content":    m.Content,
			"timestamp":  m.Timestamp,
			"is_read":    m.IsRead,
			"is_deleted": m.IsDeleted,
			"is_media":   m.IsMedia,
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"user1":         req.User1Address,
		"user2":         req.User2Address,
		"message_count": len(out),
		"messages":      out,
	})
}

func pairKey(user1, user2 string) string {
	return strings.ToLower(user1) + ":" + strings.ToLower(user2)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
