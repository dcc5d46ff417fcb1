package handlers

import (
	"errors"
	"net/http"

	"github.com/golf-arbitri/referee-system/middleware"
	"github.com/golf-arbitri/referee-system/services"
)

type AvailabilityHandler struct {
	availabilityService services.AvailabilityService
}

func NewAvailabilityHandler(availabilityService services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityService: availabilityService}
}

// Submit принимает пакет заявок арбитра. Ответ — 207-подобный разбор:
// созданные заявки плюс причины отказа по отдельным турнирам.
func (h *AvailabilityHandler) Submit(w http.ResponseWriter, r *http.Request) {
	refereeID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.SubmitAvailabilityInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.TournamentIDs) == 0 {
		badRequestResponse(w, r, errors.New("tournament_ids must not be empty"))
		return
	}

	result, err := h.availabilityService.Submit(r.Context(), refereeID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusCreated
	if len(result.Submitted) == 0 {
		status = http.StatusUnprocessableEntity
	}
	if err := writeJSON(w, status, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AvailabilityHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	refereeID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.availabilityService.Withdraw(r.Context(), refereeID, tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	params := services.ListAvailabilitiesParams{
		TournamentID: queryInt(r, "tournament_id"),
		UserID:       queryInt(r, "user_id"),
	}
	if limit := queryInt(r, "limit"); limit != nil {
		params.Limit = *limit
	}
	if offset := queryInt(r, "offset"); offset != nil {
		params.Offset = *offset
	}

	availabilities, err := h.availabilityService.List(r.Context(), actorID, params)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"availabilities": availabilities}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
