package main

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"exercisegen"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
)

const sessionName = "exercisegen-session"

type Server struct {
	db       *exercisegen.DB
	store    *sessions.CookieStore
	maker    *exercisegen.ItemMaker
	pipeline *exercisegen.Pipeline
}

type createRequest struct {
	Subject    string `json:"subject"`
	Grade      int    `json:"grade"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	NumItems   int    `json:"num_items"`
	AutoFix    bool   `json:"auto_fix"`
}

func init() {
	gob.Register([]string{})
}

func main() {
	godotenv.Load()
	exercisegen.SetVerbose(true)

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	sessionKey := os.Getenv("SESSION_KEY")
	if sessionKey == "" {
		sessionKey = "exercisegen-dev-key"
		log.Printf("Warning: SESSION_KEY not set, using insecure development key")
	}

	dbPath := os.Getenv("WORKSHEET_DB")
	if dbPath == "" {
		dbPath = "./worksheets.db"
	}

	db, err := exercisegen.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()

	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	oracle := exercisegen.NewOpenAIOracle(apiKey)

	server := &Server{
		db:       db,
		store:    sessions.NewCookieStore([]byte(sessionKey)),
		maker:    exercisegen.NewItemMaker(oracle),
		pipeline: exercisegen.NewPipeline(oracle),
	}

	http.HandleFunc("/worksheets", server.handleWorksheets)
	http.HandleFunc("/worksheets/", server.handleWorksheet)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8180"
	}

	log.Printf("Starting server on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleWorksheets serves POST /worksheets and GET /worksheets
func (s *Server) handleWorksheets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createWorksheet(w, r)
	case http.MethodGet:
		s.listWorksheets(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createWorksheet(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" || req.Topic == "" {
		writeError(w, http.StatusBadRequest, "subject and topic are required")
		return
	}
	if req.Grade == 0 {
		req.Grade = 6
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.NumItems <= 0 || req.NumItems > 30 {
		req.NumItems = 10
	}

	dctx := exercisegen.DomainContext{
		Subject:    exercisegen.Subject(req.Subject),
		Grade:      req.Grade,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
	}

	worksheet := &exercisegen.Worksheet{
		ID:        uuid.NewString(),
		Context:   dctx,
		CreatedAt: time.Now(),
		Status:    exercisegen.WorksheetGenerating,
	}
	if err := s.db.CreateWorksheet(worksheet); err != nil {
		log.Printf("Failed to create worksheet: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create worksheet")
		return
	}

	s.rememberWorksheet(w, r, worksheet.ID)

	go s.generateAndValidate(worksheet.ID, dctx, req.NumItems, req.AutoFix)

	writeJSON(w, http.StatusAccepted, worksheet)
}

// generateAndValidate runs the full generate -> validate -> store flow in
// the background; clients poll the worksheet status
func (s *Server) generateAndValidate(worksheetID string, dctx exercisegen.DomainContext, numItems int, autoFix bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	logger, err := exercisegen.NewLLMLogger(worksheetID, dctx)
	if err != nil {
		log.Printf("Worksheet %s: could not create LLM transcript logger: %v", worksheetID, err)
		logger = nil
	}
	defer logger.Close()

	fail := func(reason string, err error) {
		log.Printf("Worksheet %s: %s: %v", worksheetID, reason, err)
		if err := s.db.UpdateWorksheetStatus(worksheetID, exercisegen.WorksheetFailed); err != nil {
			log.Printf("Worksheet %s: failed to mark failed: %v", worksheetID, err)
		}
	}

	items, err := s.maker.GenerateItems(ctx, exercisegen.GenerationRequest{
		Context:  dctx,
		NumItems: numItems,
	}, logger)
	if err != nil {
		fail("generation failed", err)
		return
	}

	report := s.pipeline.Validate(ctx, items, dctx, exercisegen.ValidateOptions{AutoFix: autoFix}, logger)

	if err := s.db.SaveItems(worksheetID, report.FinalItems); err != nil {
		fail("failed to save items", err)
		return
	}
	if err := s.db.SaveReport(worksheetID, report); err != nil {
		fail("failed to save report", err)
		return
	}
	if err := s.db.UpdateWorksheetStatus(worksheetID, exercisegen.WorksheetReady); err != nil {
		fail("failed to mark ready", err)
		return
	}

	log.Printf("Worksheet %s: ready, valid=%v, %d problem item(s)", worksheetID, report.Valid, len(report.ProblemItems))
}

// rememberWorksheet appends the ID to the browser's session history
func (s *Server) rememberWorksheet(w http.ResponseWriter, r *http.Request, id string) {
	session, _ := s.store.Get(r, sessionName)

	var ids []string
	if existing, ok := session.Values["worksheets"].([]string); ok {
		ids = existing
	}
	ids = append(ids, id)
	session.Values["worksheets"] = ids

	if err := session.Save(r, w); err != nil {
		log.Printf("Failed to save session: %v", err)
	}
}

func (s *Server) listWorksheets(w http.ResponseWriter, r *http.Request) {
	session, _ := s.store.Get(r, sessionName)
	ids, _ := session.Values["worksheets"].([]string)

	worksheets := make([]exercisegen.Worksheet, 0, len(ids))
	for _, id := range ids {
		ws, err := s.db.GetWorksheet(id)
		if err != nil {
			continue
		}
		ws.Items = nil // listing is metadata only
		worksheets = append(worksheets, *ws)
	}

	writeJSON(w, http.StatusOK, worksheets)
}

// handleWorksheet serves GET /worksheets/{id} and GET /worksheets/{id}/report
func (s *Server) handleWorksheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/worksheets/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.getWorksheet(w, parts[0])
	case len(parts) == 2 && parts[1] == "report":
		s.getReport(w, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) getWorksheet(w http.ResponseWriter, id string) {
	worksheet, err := s.db.GetWorksheet(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "worksheet not found")
		return
	}
	writeJSON(w, http.StatusOK, worksheet)
}

func (s *Server) getReport(w http.ResponseWriter, id string) {
	report, err := s.db.GetReport(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
