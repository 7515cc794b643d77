package collector

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	apperrors "github.com/chainsafe/wallet-indexer/pkg/app/errors"
	apphttp "github.com/chainsafe/wallet-indexer/pkg/app/http"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

type addressesResponse struct {
	Addresses []*address.Address `json:"addresses"`
}

type listAddressesResponse struct {
	Success   bool               `json:"success"`
	Count     int                `json:"count"`
	Addresses []*address.Address `json:"addresses"`
}

// RegisterRoutes registers the address endpoints under /addresses on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Route("/addresses", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.getAddresses))
		r.Post("/collect", apphttp.HandleError(h.collect))
		r.Get("/list", apphttp.HandleError(h.list))
	})
}

func (h *HTTP) getAddresses(w http.ResponseWriter, r *http.Request) error {
	filter, err := parseFilter(r)
	if err != nil {
		return err
	}
	addrs, err := h.service.ListAddresses(r.Context(), filter)
	if err != nil {
		return apperrors.GeneralError(err, "Failed to get addresses")
	}
	apphttp.WriteJSON(w, http.StatusOK, addressesResponse{Addresses: nonNil(addrs)})
	return nil
}

func (h *HTTP) collect(w http.ResponseWriter, r *http.Request) error {
	apphttp.WriteJSON(w, http.StatusOK, h.service.CollectAddresses(r.Context()))
	return nil
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	filter, err := parseFilter(r)
	if err != nil {
		return err
	}
	h.logger.Info("Listing addresses in the database")
	addrs, err := h.service.ListAddresses(r.Context(), filter)
	if err != nil {
		return apperrors.GeneralError(err, "Failed to list addresses")
	}
	addrs = nonNil(addrs)
	apphttp.WriteJSON(w, http.StatusOK, listAddressesResponse{
		Success:   true,
		Count:     len(addrs),
		Addresses: addrs,
	})
	return nil
}

// parseFilter reads the optional source and chain query parameters.
func parseFilter(r *http.Request) (Filter, error) {
	var filter Filter
	values := r.URL.Query()

	if raw := values.Get("source"); raw != "" {
		src, ok := address.ParseSource(raw)
		if !ok {
			return Filter{}, apperrors.BadRequestError(nil, "source must be privy, bridge or json")
		}
		filter.Source = &src
	}
	if raw := values.Get("chain"); raw != "" {
		chain, ok := address.ParseChain(raw)
		if !ok {
			return Filter{}, apperrors.BadRequestError(nil, "chain must be ethereum or base")
		}
		filter.Chain = &chain
	}
	return filter, nil
}

func nonNil(addrs []*address.Address) []*address.Address {
	if addrs == nil {
		return []*address.Address{}
	}
	return addrs
}
