package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/middleware"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/services"
)

// Максимальный размер multipart-запроса с файлом работы.
const maxSubmissionBytes = 32 << 20 // 32MB

type SubmissionHandler struct {
	submissionService services.SubmissionService
}

func NewSubmissionHandler(submissionService services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

func (h *SubmissionHandler) SubmitWork(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	registrationID, err := strconv.Atoi(r.FormValue("registration_id"))
	if err != nil || registrationID <= 0 {
		badRequestResponse(w, r, fmt.Errorf("invalid registration_id field"))
		return
	}

	var description *string
	if d := r.FormValue("description"); d != "" {
		description = &d
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("submission file is required"))
		return
	}
	defer file.Close()

	actor, err := middleware.CurrentUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	input := services.SubmitWorkInput{
		RegistrationID: registrationID,
		CompetitionID:  competitionID,
		Description:    description,
		FileName:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		File:           file,
	}

	submission, err := h.submissionService.SubmitWork(r.Context(), input, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) ScoreSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID, err := getIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var body struct {
		Score int `json:"score"`
	}
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor, err := middleware.CurrentUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.submissionService.ScoreSubmission(r.Context(), submissionID, body.Score, actor); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"scored": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor, err := middleware.CurrentUserFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	submissions, err := h.submissionService.ListSubmissions(r.Context(), competitionID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submissions": submissions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) GetCompetitionRank(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rank, err := h.submissionService.GetCompetitionRank(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rank": rank}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
