package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

type topUpRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Note   string `json:"note" validate:"max=255"`
}

type reverseRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type bulkRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
	Reason string      `json:"reason" validate:"max=255"`
}

func walletRef(r *http.Request) (Ref, error) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return Ref{}, err
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return Ref{}, ErrWalletNotFound
	}
	return Ref{Kind: kind, ID: id}, nil
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ref, err := walletRef(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	wallet, err := h.svc.GetWallet(r.Context(), ref)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, wallet)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ref, err := walletRef(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.svc.ListTransactions(r.Context(), ref, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, list)
}

func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	ref, err := walletRef(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req topUpRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	actor := middleware.GetActorID(r.Context())
	t, err := h.svc.TopUp(r.Context(), actor, ref, req.Amount, req.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, t)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	var req reverseRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	actor := middleware.GetActorID(r.Context())
	reversalID, err := h.svc.ReverseTransaction(r.Context(), actor, id, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"reversal_id": reversalID})
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid transaction id")
		return
	}

	actor := middleware.GetActorID(r.Context())
	if err := h.svc.RestoreTransaction(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	actor := middleware.GetActorID(r.Context())
	results := h.svc.BulkDeleteTransactions(r.Context(), actor, req.IDs, req.Reason)
	response.OK(w, results)
}

func (h *Handler) BulkRestore(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	actor := middleware.GetActorID(r.Context())
	results := h.svc.BulkRestoreTransactions(r.Context(), actor, req.IDs)
	response.OK(w, results)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, rows)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientBalanceError
	switch {
	case errors.Is(err, ErrInvalidWalletKind), errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrWalletNotFound), errors.Is(err, ErrTransactionNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrAlreadyReversed), errors.Is(err, ErrNotReversed):
		response.Conflict(w, err.Error())
	case errors.As(err, &insufficient):
		response.ErrorWithDetails(w, http.StatusBadRequest, "INSUFFICIENT_BALANCE", err.Error(),
			map[string]string{"short": strconv.FormatInt(insufficient.Short, 10)})
	default:
		response.InternalError(w)
	}
}

// Routes mounts wallet and transaction endpoints.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Route("/wallets/{kind}/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/transactions", h.ListTransactions)
		r.Post("/topup", h.TopUp)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Post("/{id}/reverse", h.Reverse)
		r.Post("/{id}/restore", h.Restore)
		r.Post("/bulk-delete", h.BulkDelete)
		r.Post("/bulk-restore", h.BulkRestore)
	})

	return r
}
