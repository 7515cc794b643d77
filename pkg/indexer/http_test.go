package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/wallet-indexer/pkg/address"
	"github.com/chainsafe/wallet-indexer/pkg/addressstore"
	"github.com/chainsafe/wallet-indexer/pkg/collector"
	"github.com/chainsafe/wallet-indexer/pkg/transaction"
	"github.com/chainsafe/wallet-indexer/pkg/txstore"
)

const validAddr = "0x00000000000000000000000000000000000000AA"

func newTestServer(svc Service, c AddressCollector) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewLog(svc, zap.NewNop()), c, zap.NewNop())
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var got struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got.Error
}

func TestHTTP_GetTransactionsIndexesThenLists(t *testing.T) {
	svc := new(mockService)
	var order []string
	svc.On("IndexAll", mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "index") }).
		Return(Summary{Addresses: 1, Transactions: 2})
	svc.On("ListTransactions", mock.Anything, 2, "4", mock.MatchedBy(func(f Filter) bool {
		return f.Direction != nil && *f.Direction == transaction.DirectionReceived && f.Chain == nil
	})).
		Run(func(mock.Arguments) { order = append(order, "list") }).
		Return(&transaction.Page{
			Transactions: []*transaction.Transaction{{ID: "0x1"}, {ID: "0x2"}},
			NextCursor:   "6",
		}, nil)

	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet,
		"/transactions?limit=2&direction=received&lastEvaluatedKey=%224%22")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"index", "list"}, order)

	var got struct {
		Transactions     []transaction.Transaction `json:"transactions"`
		LastEvaluatedKey string                    `json:"lastEvaluatedKey"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Transactions, 2)
	assert.Equal(t, "6", got.LastEvaluatedKey)
}

func TestHTTP_GetTransactionsLastPageOmitsCursor(t *testing.T) {
	svc := new(mockService)
	svc.On("IndexAll", mock.Anything).Return(Summary{})
	svc.On("ListTransactions", mock.Anything, 50, "", Filter{}).
		Return(&transaction.Page{}, nil)

	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet, "/transactions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"transactions":[]}`, rec.Body.String())
}

func TestHTTP_GetTransactionsRejectsBadInput(t *testing.T) {
	tests := []struct {
		query string
		msg   string
	}{
		{"limit=0", "limit must be between 1 and 1000"},
		{"limit=1001", "limit must be between 1 and 1000"},
		{"limit=abc", "limit must be an integer"},
		{"direction=sideways", "direction must be sent or received"},
		{"chain=polygon", "chain must be ethereum or base"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := new(mockService)
			rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet, "/transactions?"+tt.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, decodeErr(t, rec))
			svc.AssertNotCalled(t, "IndexAll", mock.Anything)
		})
	}
}

func TestHTTP_GetTransactionsInvalidCursor(t *testing.T) {
	svc := new(mockService)
	svc.On("IndexAll", mock.Anything).Return(Summary{})
	svc.On("ListTransactions", mock.Anything, 50, "nope", Filter{}).
		Return(nil, fmt.Errorf("failed to list transactions: %w", txstore.ErrInvalidCursor))

	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet, "/transactions?lastEvaluatedKey=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid lastEvaluatedKey", decodeErr(t, rec))
}

func TestHTTP_GetTransactionsStorageError(t *testing.T) {
	svc := new(mockService)
	svc.On("IndexAll", mock.Anything).Return(Summary{})
	svc.On("ListTransactions", mock.Anything, 50, "", Filter{}).
		Return(nil, errors.New("db down"))

	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet, "/transactions")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to get transactions", decodeErr(t, rec))
}

func TestHTTP_AddressTransactions(t *testing.T) {
	lower := address.Normalize(validAddr)

	c := new(mockCollector)
	c.On("CollectAddresses", mock.Anything).Return(collector.Result{Total: 3, New: 1})

	svc := new(mockService)
	svc.On("IndexAddress", mock.Anything, mock.MatchedBy(func(a *address.Address) bool {
		return a.Address == lower && a.Source == address.SourceJSON && a.Chain == address.ChainEthereum
	})).Return(0, errors.New("provider down"))
	svc.On("TransactionsByAddress", mock.Anything, lower, Filter{}).
		Return([]*transaction.Transaction{{ID: "0x1"}}, nil)

	rec := serve(newTestServer(svc, c), http.MethodGet, "/transactions/address/"+validAddr)
	require.Equal(t, http.StatusOK, rec.Code, "indexing errors are not fatal")
	c.AssertExpectations(t)

	var got struct {
		Transactions []transaction.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Transactions, 1)
}

func TestHTTP_AddressTransactionsInvalidAddress(t *testing.T) {
	rec := serve(newTestServer(new(mockService), new(mockCollector)), http.MethodGet, "/transactions/address/not-hex")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid address", decodeErr(t, rec))
}

func TestHTTP_Index(t *testing.T) {
	svc := new(mockService)
	svc.On("IndexAll", mock.Anything).Return(Summary{Addresses: 3, Transactions: 9})
	h := newTestServer(svc, new(mockCollector))

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		rec := serve(h, method, "/transactions/index")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"addresses":3,"transactions":9}`, rec.Body.String())
	}
}

func TestHTTP_List(t *testing.T) {
	svc := new(mockService)
	svc.On("ListTransactions", mock.Anything, 10, "", Filter{}).
		Return(&transaction.Page{Transactions: []*transaction.Transaction{{ID: "0x1"}}, NextCursor: "10"}, nil)

	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet, "/transactions/list")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
		HasMore bool `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, 1, got.Count)
	assert.True(t, got.HasMore)
}

func TestHTTP_ListByAddress(t *testing.T) {
	svc := new(mockService)
	svc.On("TransactionsByAddress", mock.Anything, validAddr, Filter{}).Return(nil, nil)

	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet, "/transactions/list/"+validAddr)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		fmt.Sprintf(`{"success":true,"count":0,"address":%q,"transactions":[]}`, validAddr),
		rec.Body.String(),
	)
}

func TestHTTP_ListFiltersByChainAndDirection(t *testing.T) {
	svc := new(mockService)
	svc.On("ListTransactions", mock.Anything, 5, "", mock.MatchedBy(func(f Filter) bool {
		return f.Chain != nil && *f.Chain == address.ChainBase &&
			f.Direction != nil && *f.Direction == transaction.DirectionSent
	})).Return(&transaction.Page{}, nil)

	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet,
		"/transactions/list?limit=5&chain=base&direction=sent")
	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHTTP_ListByAddressFiltersByChain(t *testing.T) {
	svc := new(mockService)
	svc.On("TransactionsByAddress", mock.Anything, validAddr, mock.MatchedBy(func(f Filter) bool {
		return f.Chain != nil && *f.Chain == address.ChainEthereum && f.Direction == nil
	})).Return(nil, nil)

	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodGet,
		"/transactions/list/"+validAddr+"?chain=ethereum")
	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHTTP_IndexAddress(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"ok", nil, http.StatusOK,
			`{"address":"0x00000000000000000000000000000000000000aa","transactions":4}`},
		{"unknown address", fmt.Errorf("lookup: %w", addressstore.ErrAddressNotFound), http.StatusNotFound,
			`{"error":"address not found","code":404}`},
		{"no provider", ErrProviderNotConfigured, http.StatusBadGateway,
			`{"error":"transfer-history provider is not configured","code":502}`},
		{"provider failure", fmt.Errorf("%w for x: %w", ErrFetchFailed, errors.New("timeout")), http.StatusBadGateway,
			`{"error":"Failed to fetch transactions","code":502}`},
		{"store failure", errors.New("db down"), http.StatusInternalServerError,
			`{"error":"Failed to index address","code":500}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			n := 0
			if tt.err == nil {
				n = 4
			}
			svc.On("IndexStoredAddress", mock.Anything, validAddr).Return(n, tt.err)

			rec := serve(newTestServer(svc, new(mockCollector)), http.MethodPost, "/transactions/index/"+validAddr)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestHTTP_IndexAddressInvalid(t *testing.T) {
	svc := new(mockService)
	rec := serve(newTestServer(svc, new(mockCollector)), http.MethodPost, "/transactions/index/0x12")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "IndexStoredAddress", mock.Anything, mock.Anything)
}

func TestHTTP_GetTransaction(t *testing.T) {
	svc := new(mockService)
	svc.On("GetTransaction", mock.Anything, "0x1").Return(&transaction.Transaction{ID: "0x1"}, nil)
	svc.On("GetTransaction", mock.Anything, "0x2").Return(nil, txstore.ErrTransactionNotFound)
	svc.On("GetTransaction", mock.Anything, "0x3").Return(nil, errors.New("db down"))
	h := newTestServer(svc, new(mockCollector))

	rec := serve(h, http.MethodGet, "/transactions/hash/0x1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got transaction.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "0x1", got.ID)

	rec = serve(h, http.MethodGet, "/transactions/hash/0x2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "transaction not found", decodeErr(t, rec))

	rec = serve(h, http.MethodGet, "/transactions/hash/0x3")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestParseCursor(t *testing.T) {
	assert.Equal(t, "40", parseCursor("40"))
	assert.Equal(t, "40", parseCursor(`"40"`))
	assert.Equal(t, "", parseCursor(""))
}
