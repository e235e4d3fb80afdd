package heygen

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockServer provides a configurable HeyGen API mock for testing. It keeps
// an in-memory view of sessions and knowledge bases and answers with the
// {code, message, data} envelope the real API uses.
type MockServer struct {
	*httptest.Server
	mu        sync.RWMutex
	apiKey    string
	sessions  map[string]*SessionInfo
	history   []SessionHistoryInfo
	avatars   []AvatarInfo
	kbs       map[string]*KnowledgeBaseInfo
	nextID    int
	failures  map[string]int // failures to serve before success, per endpoint
	forceCode map[string]int // fixed HTTP status per endpoint
}

// NewMockServer creates a mock with realistic default data. apiKey is the
// key requests must carry; empty disables the check.
func NewMockServer(apiKey string) *MockServer {
	m := &MockServer{
		apiKey:    apiKey,
		sessions:  make(map[string]*SessionInfo),
		kbs:       make(map[string]*KnowledgeBaseInfo),
		failures:  make(map[string]int),
		forceCode: make(map[string]int),
	}
	m.SetDefaultData()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/streaming.new", m.handleNew)
	mux.HandleFunc("/v1/streaming.start", m.handleStart)
	mux.HandleFunc("/v1/streaming.stop", m.handleStop)
	mux.HandleFunc("/v1/streaming.keep_alive", m.handleKeepAlive)
	mux.HandleFunc("/v1/streaming.interrupt", m.handleInterrupt)
	mux.HandleFunc("/v1/streaming.task", m.handleTask)
	mux.HandleFunc("/v1/streaming.create_token", m.handleCreateToken)
	mux.HandleFunc("/v1/streaming.list", m.handleList)
	mux.HandleFunc("/v1/streaming.list_history", m.handleListHistory)
	mux.HandleFunc("/v1/streaming/avatar.list", m.handleAvatarList)
	mux.HandleFunc("/v1/streaming/knowledge_base.create", m.handleKBCreate)
	mux.HandleFunc("/v1/streaming/knowledge_base.list", m.handleKBList)
	mux.HandleFunc("/v1/streaming/knowledge_base/", m.handleKBItem)

	m.Server = httptest.NewServer(mux)
	return m
}

// SetDefaultData resets the mock to its default catalog.
func (m *MockServer) SetDefaultData() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Unix()
	m.avatars = []AvatarInfo{
		{AvatarID: "Kristin_public_2_20240108", CreatedAt: now - 86400, IsPublic: true, Status: "ACTIVE"},
		{AvatarID: "Tyler-incasualsuit-20220721", CreatedAt: now - 172800, IsPublic: true, Status: "ACTIVE"},
		{AvatarID: "custom_brand_avatar_01", CreatedAt: now - 3600, IsPublic: false, Status: "ACTIVE"},
	}
	m.history = []SessionHistoryInfo{
		{SessionID: "hist-001", CreatedAt: now - 7200, EndedAt: now - 7000, Status: "COMPLETED", DurationSeconds: 200, AvatarID: "Kristin_public_2_20240108"},
		{SessionID: "hist-002", CreatedAt: now - 3600, EndedAt: now - 3500, Status: "COMPLETED", DurationSeconds: 100},
	}
}

// FailNext makes the given endpoint fail n times with HTTP 500 before
// recovering.
func (m *MockServer) FailNext(path string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = n
}

// ForceStatus pins an endpoint to always answer with the given status.
func (m *MockServer) ForceStatus(path string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forceCode[path] = status
}

// SessionCount reports the number of sessions the mock has created.
func (m *MockServer) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MockServer) gate(w http.ResponseWriter, r *http.Request) bool {
	m.mu.Lock()
	if n := m.failures[r.URL.Path]; n > 0 {
		m.failures[r.URL.Path] = n - 1
		m.mu.Unlock()
		writeEnvelopeError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if code := m.forceCode[r.URL.Path]; code != 0 {
		m.mu.Unlock()
		writeEnvelopeError(w, code, http.StatusText(code))
		return false
	}
	apiKey := m.apiKey
	m.mu.Unlock()

	if apiKey != "" && r.Header.Get(headerAPIKey) != apiKey {
		writeEnvelopeError(w, http.StatusUnauthorized, "invalid api key")
		return false
	}
	return true
}

func (m *MockServer) handleNew(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	var req NewSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	m.mu.Lock()
	m.nextID++
	id := "mock-session-" + strconv.Itoa(m.nextID)
	m.sessions[id] = &SessionInfo{SessionID: id, Status: "new", CreatedAt: time.Now().Unix()}
	m.mu.Unlock()

	writeEnvelope(w, SessionDetail{
		SessionID:            id,
		URL:                  "wss://heygen-mock.example/rtc/" + id,
		AccessToken:          "mock-access-token",
		RealtimeEndpoint:     "wss://heygen-mock.example/realtime/" + id,
		SessionDurationLimit: 600,
	})
}

func (m *MockServer) sessionAction(w http.ResponseWriter, r *http.Request, newStatus string, remove bool) {
	if !m.gate(w, r) {
		return
	}
	var ref sessionRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil || ref.SessionID == "" {
		writeEnvelopeError(w, http.StatusBadRequest, "missing session_id")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ref.SessionID]
	if !ok {
		writeEnvelopeError(w, http.StatusNotFound, "session not found")
		return
	}
	if remove {
		delete(m.sessions, ref.SessionID)
	} else if newStatus != "" {
		s.Status = newStatus
	}
	writeEnvelope(w, map[string]string{"status": "success"})
}

func (m *MockServer) handleStart(w http.ResponseWriter, r *http.Request) {
	m.sessionAction(w, r, "connected", false)
}

func (m *MockServer) handleStop(w http.ResponseWriter, r *http.Request) {
	m.sessionAction(w, r, "", true)
}

func (m *MockServer) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	m.sessionAction(w, r, "", false)
}

func (m *MockServer) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	m.sessionAction(w, r, "", false)
}

func (m *MockServer) handleTask(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	var req SendTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.Text == "" {
		writeEnvelopeError(w, http.StatusBadRequest, "invalid task")
		return
	}

	m.mu.RLock()
	_, ok := m.sessions[req.SessionID]
	m.mu.RUnlock()
	if !ok {
		writeEnvelopeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeEnvelope(w, TaskResult{
		DurationMS: float64(len(req.Text)) * 60.0, // rough speech estimate
		TaskID:     "task-" + req.SessionID,
	})
}

func (m *MockServer) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeEnvelopeError(w, http.StatusBadRequest, "missing session_id")
		return
	}

	m.mu.RLock()
	_, ok := m.sessions[req.SessionID]
	m.mu.RUnlock()
	if !ok {
		writeEnvelopeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeEnvelope(w, map[string]string{"token": "mock-token-" + req.SessionID})
}

func (m *MockServer) handleList(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	m.mu.RLock()
	sessions := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, *s)
	}
	m.mu.RUnlock()
	writeEnvelope(w, map[string]any{"sessions": sessions})
}

func (m *MockServer) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	total := len(m.history)
	end := offset + limit
	if end > total {
		end = total
	}
	var page []SessionHistoryInfo
	if offset < total {
		page = m.history[offset:end]
	}
	m.mu.RUnlock()

	writeEnvelope(w, map[string]any{"sessions": page, "total": total})
}

func (m *MockServer) handleAvatarList(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	m.mu.RLock()
	avatars := append([]AvatarInfo(nil), m.avatars...)
	m.mu.RUnlock()
	writeEnvelope(w, map[string]any{"avatars": avatars})
}

func (m *MockServer) handleKBCreate(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	var req KnowledgeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeEnvelopeError(w, http.StatusBadRequest, "missing name")
		return
	}

	m.mu.Lock()
	m.nextID++
	kb := &KnowledgeBaseInfo{
		KnowledgeBaseID: "kb-" + strconv.Itoa(m.nextID),
		Name:            req.Name,
		Status:          "ACTIVE",
		CreatedAt:       time.Now().Unix(),
		UpdatedAt:       time.Now().Unix(),
	}
	m.kbs[kb.KnowledgeBaseID] = kb
	m.mu.Unlock()

	writeEnvelope(w, kb)
}

func (m *MockServer) handleKBList(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	m.mu.RLock()
	list := make([]KnowledgeBaseInfo, 0, len(m.kbs))
	for _, kb := range m.kbs {
		list = append(list, *kb)
	}
	m.mu.RUnlock()
	writeEnvelope(w, map[string]any{"list": list})
}

// handleKBItem serves /v1/streaming/knowledge_base/{id} (update) and
// /v1/streaming/knowledge_base/{id}/delete.
func (m *MockServer) handleKBItem(w http.ResponseWriter, r *http.Request) {
	if !m.gate(w, r) {
		return
	}
	rest := r.URL.Path[len("/v1/streaming/knowledge_base/"):]
	id := rest
	deleting := false
	if n := len(rest); n > len("/delete") && rest[n-len("/delete"):] == "/delete" {
		id = rest[:n-len("/delete")]
		deleting = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kb, ok := m.kbs[id]
	if !ok {
		writeEnvelopeError(w, http.StatusNotFound, "knowledge base not found")
		return
	}
	if deleting {
		delete(m.kbs, id)
		writeEnvelope(w, map[string]string{"status": "success"})
		return
	}

	var req KnowledgeBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeEnvelopeError(w, http.StatusBadRequest, "missing name")
		return
	}
	kb.Name = req.Name
	kb.UpdatedAt = time.Now().Unix()
	writeEnvelope(w, kb)
}

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    codeSuccess,
		"message": "Success",
		"data":    data,
	})
}

func writeEnvelopeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    status,
		"message": message,
	})
}
