package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// Handler exposes the REST surface: the unauthenticated public lookup
// endpoints and the token-gated board endpoints.
type Handler struct {
	marks        *app.MarkService
	publisher    *app.Publisher
	sessions     *app.SessionService
	certificates *app.CertificateService
	lookup       *app.LookupService
	public       app.PublicLookup
	validate     *validator.Validate
}

// NewHandler wires the services. public is the lookup surface served to the
// internet, usually the redis-cached decorator around lookup.
func NewHandler(marks *app.MarkService, publisher *app.Publisher, sessions *app.SessionService, certificates *app.CertificateService, lookup *app.LookupService, public app.PublicLookup) *Handler {
	return &Handler{
		marks:        marks,
		publisher:    publisher,
		sessions:     sessions,
		certificates: certificates,
		lookup:       lookup,
		public:       public,
		validate:     validator.New(),
	}
}

// Register mounts all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/public/results/search", h.searchResults)
	mux.HandleFunc("GET /api/public/results/verify", h.verifyResult)
	mux.HandleFunc("GET /api/public/certificates/verify", h.verifyCertificate)
	mux.HandleFunc("GET /api/public/stats", h.publicStats)

	mux.HandleFunc("POST /api/marks", h.withToken(h.submitMark))
	mux.HandleFunc("GET /api/marks", h.withToken(h.listMarks))
	mux.HandleFunc("POST /api/marks/approve", h.withToken(h.approveMarks))
	mux.HandleFunc("POST /api/marks/reject", h.withToken(h.rejectMarks))

	mux.HandleFunc("POST /api/sessions", h.withToken(h.createSession))
	mux.HandleFunc("GET /api/sessions", h.withToken(h.listSessions))
	mux.HandleFunc("GET /api/sessions/{id}", h.withToken(h.getSession))
	mux.HandleFunc("POST /api/sessions/{id}/status", h.withToken(h.transitionSession))
	mux.HandleFunc("POST /api/sessions/{id}/publish", h.withToken(h.publishResults))

	mux.HandleFunc("GET /api/summaries", h.withToken(h.listSummaries))

	mux.HandleFunc("POST /api/certificates", h.withToken(h.issueCertificate))
	mux.HandleFunc("GET /api/certificates", h.withToken(h.listCertificates))
	mux.HandleFunc("POST /api/certificates/{id}/revoke", h.withToken(h.revokeCertificate))

	mux.HandleFunc("GET /api/audit", h.withToken(h.listAudit))
}

// withToken copies the bearer token into the request context; the role gate
// decides whether it is any good.
func (h *Handler) withToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			r = r.WithContext(app.WithToken(r.Context(), token))
		}
		next(w, r)
	}
}

// ─── public surface ───

func (h *Handler) searchResults(w http.ResponseWriter, r *http.Request) {
	rollNumber := r.URL.Query().Get("rollNumber")
	regID := r.URL.Query().Get("regId")
	if (rollNumber == "") == (regID == "") {
		writeError(w, domain.ErrInvalidLookup)
		return
	}

	if rollNumber != "" {
		view, err := h.public.SearchByRollNumber(r.Context(), rollNumber)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": view})
		return
	}

	views, err := h.public.SearchByBoardRegID(r.Context(), regID)
	if err != nil {
		writeError(w, err)
		return
	}
	// views stays nil for an unknown student and [] for a known student with
	// nothing published; the JSON null/[] distinction is part of the contract.
	writeJSON(w, http.StatusOK, map[string]any{"results": views})
}

func (h *Handler) verifyResult(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, domain.ErrInvalidLookup)
		return
	}
	v, err := h.public.VerifyResult(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	if v == nil {
		writeJSON(w, http.StatusOK, map[string]any{"verified": false})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) verifyCertificate(w http.ResponseWriter, r *http.Request) {
	certificateID := r.URL.Query().Get("certificateId")
	if certificateID == "" {
		writeError(w, domain.ErrInvalidLookup)
		return
	}
	v, err := h.public.VerifyCertificate(r.Context(), certificateID)
	if err != nil {
		writeError(w, err)
		return
	}
	if v == nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) publicStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.public.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ─── marks ───

type submitMarkRequest struct {
	StudentID     string `json:"studentId" validate:"required"`
	ExamSessionID string `json:"examSessionId" validate:"required"`
	SubjectID     string `json:"subjectId" validate:"required"`
	MarksObtained int    `json:"marksObtained" validate:"gte=0"`
	IsAbsent      bool   `json:"isAbsent"`
}

func (h *Handler) submitMark(w http.ResponseWriter, r *http.Request) {
	var req submitMarkRequest
	if !h.decode(w, r, &req) {
		return
	}
	mark, err := h.marks.Submit(r.Context(), app.SubmitMarkInput{
		StudentID:     req.StudentID,
		ExamSessionID: req.ExamSessionID,
		SubjectID:     req.SubjectID,
		MarksObtained: req.MarksObtained,
		IsAbsent:      req.IsAbsent,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mark)
}

func (h *Handler) listMarks(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, domain.ErrInvalidLookup)
		return
	}
	marks, err := h.marks.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"marks": marks})
}

type reviewMarksRequest struct {
	MarkIDs []string `json:"markIds" validate:"required,min=1"`
}

func (h *Handler) approveMarks(w http.ResponseWriter, r *http.Request) {
	var req reviewMarksRequest
	if !h.decode(w, r, &req) {
		return
	}
	n, err := h.marks.Approve(r.Context(), req.MarkIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"approved": n})
}

func (h *Handler) rejectMarks(w http.ResponseWriter, r *http.Request) {
	var req reviewMarksRequest
	if !h.decode(w, r, &req) {
		return
	}
	n, err := h.marks.Reject(r.Context(), req.MarkIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rejected": n})
}

// ─── sessions and publication ───

type createSessionRequest struct {
	Name           string `json:"name" validate:"required"`
	Type           string `json:"type" validate:"required,oneof=annual midterm special"`
	AcademicYearID string `json:"academicYearId" validate:"required"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	session, err := h.sessions.Create(r.Context(), app.CreateSessionInput{
		Name:           req.Name,
		Type:           domain.ExamType(req.Type),
		AcademicYearID: req.AcademicYearID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	f := app.SessionFilter{
		AcademicYearID: r.URL.Query().Get("yearId"),
		Status:         domain.SessionStatus(r.URL.Query().Get("status")),
	}
	sessions, err := h.sessions.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type transitionSessionRequest struct {
	Status string `json:"status" validate:"required,oneof=ongoing completed"`
}

func (h *Handler) transitionSession(w http.ResponseWriter, r *http.Request) {
	var req transitionSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.sessions.Transition(r.Context(), r.PathValue("id"), domain.SessionStatus(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": req.Status})
}

type publishRequest struct {
	Resume bool `json:"resume"`
}

func (h *Handler) publishResults(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}
	report, err := h.publisher.Publish(r.Context(), r.PathValue("id"), app.PublishOptions{Resume: req.Resume})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) listSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.lookup.ListSummaries(r.Context(), r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

// ─── certificates ───

type issueCertificateRequest struct {
	StudentID     string `json:"studentId" validate:"required"`
	ExamSessionID string `json:"examSessionId" validate:"required"`
	Type          string `json:"type" validate:"required"`
}

func (h *Handler) issueCertificate(w http.ResponseWriter, r *http.Request) {
	var req issueCertificateRequest
	if !h.decode(w, r, &req) {
		return
	}
	cert, err := h.certificates.Issue(r.Context(), req.StudentID, req.ExamSessionID, domain.CertificateType(req.Type))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cert)
}

func (h *Handler) listCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := h.certificates.List(r.Context(), r.URL.Query().Get("studentId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"certificates": certs})
}

func (h *Handler) revokeCertificate(w http.ResponseWriter, r *http.Request) {
	if err := h.certificates.Revoke(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
}

// ─── audit ───

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.lookup.ListAudit(r.Context(), r.URL.Query().Get("table"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ─── plumbing ───

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrStudentNotFound),
		errors.Is(err, domain.ErrSchoolNotFound),
		errors.Is(err, domain.ErrSubjectNotFound),
		errors.Is(err, domain.ErrAcademicYearNotFound),
		errors.Is(err, domain.ErrMarkNotFound),
		errors.Is(err, domain.ErrSummaryNotFound),
		errors.Is(err, domain.ErrCertificateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateSubmission),
		errors.Is(err, domain.ErrPublicationInProgress),
		errors.Is(err, domain.ErrSessionNotAcceptingMarks),
		errors.Is(err, domain.ErrSessionNotCompleted),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidMarks),
		errors.Is(err, domain.ErrInvalidCertificateType),
		errors.Is(err, domain.ErrInvalidLookup):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
