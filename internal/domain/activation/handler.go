package activation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/profile"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/subscriber"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/wallet"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/middleware"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/pkg/response"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createActivationRequest
	if err := response.DecodeJSON(r.Body, &body); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(body); details != nil {
		response.ValidationError(w, details)
		return
	}

	req, err := body.toCreateRequest()
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	actor := middleware.GetActorID(r.Context())
	result, err := h.svc.Create(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, result)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid activation id")
		return
	}

	billing, radius, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, activationResponse{Billing: billing, Radius: radius})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subscriberID, err := uuid.Parse(r.URL.Query().Get("subscriber_id"))
	if err != nil {
		response.BadRequest(w, "subscriber_id query parameter is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.svc.ListBySubscriber(r.Context(), subscriberID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, list)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid activation id")
		return
	}

	actor := middleware.GetActorID(r.Context())
	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid activation id")
		return
	}

	actor := middleware.GetActorID(r.Context())
	if err := h.svc.Restore(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *wallet.InsufficientBalanceError
	switch {
	case errors.Is(err, ErrInvalidActivationType),
		errors.Is(err, ErrInvalidPaymentMethod),
		errors.Is(err, wallet.ErrInvalidWalletKind),
		errors.Is(err, wallet.ErrInvalidAmount):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrActivationNotFound),
		errors.Is(err, subscriber.ErrNotFound),
		errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, wallet.ErrWalletNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrAlreadyConsumed),
		errors.Is(err, ErrAlreadyRolledBack),
		errors.Is(err, ErrNotRolledBack),
		errors.Is(err, wallet.ErrWalletInactive):
		response.Conflict(w, err.Error())
	case errors.As(err, &insufficient):
		response.ErrorWithDetails(w, http.StatusBadRequest, "INSUFFICIENT_BALANCE", err.Error(),
			map[string]string{"short": strconv.FormatInt(insufficient.Short, 10)})
	default:
		response.InternalError(w)
	}
}

// Routes mounts activation endpoints.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/restore", h.Restore)

	return r
}
