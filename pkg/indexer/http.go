package indexer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/addressstore"
	apperrors "github.com/chainsafe/wallet-indexer/pkg/app/errors"
	apphttp "github.com/chainsafe/wallet-indexer/pkg/app/http"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
	"github.com/chainsafe/wallet-indexer/pkg/txstore"
)

const (
	defaultPageLimit = 50
	defaultListLimit = 10
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service   Service
	collector AddressCollector
	validate  *validator.Validate
	logger    *zap.Logger
}

type listQuery struct {
	Limit     int    `validate:"min=1,max=1000"`
	Direction string `validate:"omitempty,oneof=sent received"`
	Chain     string `validate:"omitempty,oneof=ethereum base"`
}

func (q *listQuery) filter() Filter {
	var f Filter
	if d, ok := transaction.ParseDirection(q.Direction); ok {
		f.Direction = &d
	}
	if c, ok := address.ParseChain(q.Chain); ok {
		f.Chain = &c
	}
	return f
}

type transactionsResponse struct {
	Transactions     []*transaction.Transaction `json:"transactions"`
	LastEvaluatedKey string                     `json:"lastEvaluatedKey,omitempty"`
}

type listTransactionsResponse struct {
	Success      bool                       `json:"success"`
	Count        int                        `json:"count"`
	HasMore      bool                       `json:"hasMore"`
	Transactions []*transaction.Transaction `json:"transactions"`
}

type indexAddressResponse struct {
	Address      string `json:"address"`
	Transactions int    `json:"transactions"`
}

type addressTransactionsResponse struct {
	Success      bool                       `json:"success"`
	Count        int                        `json:"count"`
	Address      string                     `json:"address"`
	Transactions []*transaction.Transaction `json:"transactions"`
}

// RegisterRoutes registers the transaction endpoints under /transactions on the given chi router
func RegisterRoutes(r chi.Router, service Service, c AddressCollector, logger *zap.Logger) {
	h := &HTTP{
		service:   service,
		collector: c,
		validate:  validator.New(),
		logger:    logger,
	}

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.getTransactions))
		r.Get("/address/{address}", apphttp.HandleError(h.getAddressTransactions))
		r.Post("/index", apphttp.HandleError(h.index))
		r.Get("/index", apphttp.HandleError(h.index))
		r.Post("/index/{address}", apphttp.HandleError(h.indexAddress))
		r.Get("/hash/{hash}", apphttp.HandleError(h.getTransaction))
		r.Get("/list", apphttp.HandleError(h.list))
		r.Get("/list/{address}", apphttp.HandleError(h.listByAddress))
	})
}

// getTransactions refreshes the index and returns one page of transactions.
func (h *HTTP) getTransactions(w http.ResponseWriter, r *http.Request) error {
	q, err := h.parseListQuery(r, defaultPageLimit)
	if err != nil {
		return err
	}
	cursor := parseCursor(r.URL.Query().Get("lastEvaluatedKey"))

	sum := h.service.IndexAll(r.Context())
	h.logger.Info("Indexed latest transactions",
		zap.Int("addresses", sum.Addresses),
		zap.Int("transactions", sum.Transactions),
	)

	page, err := h.service.ListTransactions(r.Context(), q.Limit, cursor, q.filter())
	if err != nil {
		return listError(err, "Failed to get transactions")
	}

	apphttp.WriteJSON(w, http.StatusOK, transactionsResponse{
		Transactions:     nonNil(page.Transactions),
		LastEvaluatedKey: page.NextCursor,
	})
	return nil
}

// getAddressTransactions refreshes the address set, indexes one address and
// returns its stored transactions.
func (h *HTTP) getAddressTransactions(w http.ResponseWriter, r *http.Request) error {
	raw := chi.URLParam(r, "address")
	if !address.IsValid(raw) {
		return apperrors.BadRequestError(nil, "invalid address")
	}
	q, err := h.parseListQuery(r, defaultPageLimit)
	if err != nil {
		return err
	}

	res := h.collector.CollectAddresses(r.Context())
	h.logger.Info("Collected addresses", zap.Int("total", res.Total), zap.Int("new", res.New))

	addr := address.New(raw, address.SourceJSON, address.ChainEthereum)
	if _, err := h.service.IndexAddress(r.Context(), addr); err != nil {
		h.logger.Warn("Indexing address failed, serving stored transactions",
			zap.String("address", addr.Address),
			zap.Error(err),
		)
	}

	txs, err := h.service.TransactionsByAddress(r.Context(), addr.Address, q.filter())
	if err != nil {
		return apperrors.GeneralError(err, "Failed to get transactions")
	}

	apphttp.WriteJSON(w, http.StatusOK, transactionsResponse{Transactions: nonNil(txs)})
	return nil
}

func (h *HTTP) index(w http.ResponseWriter, r *http.Request) error {
	apphttp.WriteJSON(w, http.StatusOK, h.service.IndexAll(r.Context()))
	return nil
}

// indexAddress indexes one stored address on demand.
func (h *HTTP) indexAddress(w http.ResponseWriter, r *http.Request) error {
	raw := chi.URLParam(r, "address")
	if !address.IsValid(raw) {
		return apperrors.BadRequestError(nil, "invalid address")
	}

	n, err := h.service.IndexStoredAddress(r.Context(), raw)
	switch {
	case errors.Is(err, addressstore.ErrAddressNotFound):
		return apperrors.ResourceNotFoundError(err, "address not found")
	case errors.Is(err, ErrProviderNotConfigured):
		return apperrors.DependencyError(err, "transfer-history provider is not configured")
	case errors.Is(err, ErrFetchFailed):
		return apperrors.DependencyError(err, "Failed to fetch transactions")
	case err != nil:
		return apperrors.GeneralError(err, "Failed to index address")
	}

	apphttp.WriteJSON(w, http.StatusOK, indexAddressResponse{
		Address:      address.Normalize(raw),
		Transactions: n,
	})
	return nil
}

func (h *HTTP) getTransaction(w http.ResponseWriter, r *http.Request) error {
	tx, err := h.service.GetTransaction(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		if errors.Is(err, txstore.ErrTransactionNotFound) {
			return apperrors.ResourceNotFoundError(err, "transaction not found")
		}
		return apperrors.GeneralError(err, "Failed to get transaction")
	}
	apphttp.WriteJSON(w, http.StatusOK, tx)
	return nil
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	q, err := h.parseListQuery(r, defaultListLimit)
	if err != nil {
		return err
	}

	h.logger.Info("Listing transactions in the database", zap.Int("limit", q.Limit))
	page, err := h.service.ListTransactions(r.Context(), q.Limit, "", q.filter())
	if err != nil {
		return listError(err, "Failed to list transactions")
	}

	txs := nonNil(page.Transactions)
	apphttp.WriteJSON(w, http.StatusOK, listTransactionsResponse{
		Success:      true,
		Count:        len(txs),
		HasMore:      page.NextCursor != "",
		Transactions: txs,
	})
	return nil
}

func (h *HTTP) listByAddress(w http.ResponseWriter, r *http.Request) error {
	addr := chi.URLParam(r, "address")
	q, err := h.parseListQuery(r, defaultListLimit)
	if err != nil {
		return err
	}

	h.logger.Info("Listing transactions for address", zap.String("address", addr))
	txs, err := h.service.TransactionsByAddress(r.Context(), addr, q.filter())
	if err != nil {
		return apperrors.GeneralError(err, "Failed to list transactions for address")
	}

	txs = nonNil(txs)
	apphttp.WriteJSON(w, http.StatusOK, addressTransactionsResponse{
		Success:      true,
		Count:        len(txs),
		Address:      addr,
		Transactions: txs,
	})
	return nil
}

func (h *HTTP) parseListQuery(r *http.Request, defaultLimit int) (*listQuery, error) {
	values := r.URL.Query()
	q := &listQuery{
		Limit:     defaultLimit,
		Direction: values.Get("direction"),
		Chain:     values.Get("chain"),
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperrors.BadRequestError(err, "limit must be an integer")
		}
		q.Limit = limit
	}

	if err := h.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "Direction":
				return nil, apperrors.BadRequestError(err, "direction must be sent or received")
			case "Chain":
				return nil, apperrors.BadRequestError(err, "chain must be ethereum or base")
			}
		}
		return nil, apperrors.BadRequestError(err, "limit must be between 1 and 1000")
	}
	return q, nil
}

// parseCursor accepts the cursor as returned by a previous page or JSON-quoted.
func parseCursor(raw string) string {
	var unquoted string
	if err := json.Unmarshal([]byte(raw), &unquoted); err == nil {
		return unquoted
	}
	return raw
}

func listError(err error, message string) error {
	if errors.Is(err, txstore.ErrInvalidCursor) {
		return apperrors.BadRequestError(err, "invalid lastEvaluatedKey")
	}
	return apperrors.GeneralError(err, message)
}

func nonNil(txs []*transaction.Transaction) []*transaction.Transaction {
	if txs == nil {
		return []*transaction.Transaction{}
	}
	return txs
}
