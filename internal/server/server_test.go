package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixise/tokend/internal/contract"
	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/token"
)

func newTestServer(t *testing.T) (*Host, *httptest.Server) {
	t.Helper()
	host := NewHost(state.NewMemStore(), 0, nil, nil)
	srv := httptest.NewServer(NewServer(host, nil, nil).Router(nil))
	t.Cleanup(srv.Close)
	return host, srv
}

func postJSON(t *testing.T, url string, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func instantiateBody(sender string) string {
	return fmt.Sprintf(`{
		"sender": %q,
		"msg": {
			"name": "Test Token",
			"symbol": "TEST",
			"decimals": 6,
			"initial_balances": [{"address": %q, "amount": "1000"}],
			"mint": {"minter": %q}
		}
	}`, sender, owner, coinbase)
}

func TestServerLifecycle(t *testing.T) {
	_, srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/v1/instantiate", instantiateBody(owner))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result InvocationResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, uint64(1), result.Height)
	assert.NotEmpty(t, result.InvocationID)

	execBody := fmt.Sprintf(`{
		"sender": %q,
		"msg": {"transfer": {"recipient": %q, "amount": "250"}}
	}`, owner, holder)
	resp, body = postJSON(t, srv.URL+"/v1/execute", execBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, uint64(2), result.Height)
	assert.Equal(t, "transfer", result.Response.Attr("action"))

	queryBody := fmt.Sprintf(`{"msg": {"balance": {"address": %q}}}`, holder)
	resp, body = postJSON(t, srv.URL+"/v1/query", queryBody)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var q struct {
		Height uint64                `json:"height"`
		Data   token.BalanceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, uint64(2), q.Height)
	assert.Equal(t, "250", q.Data.Balance.String())

	resp, body = postJSON(t, srv.URL+"/v1/query", `{"msg": {"token_info": {}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestServerHeightEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/height")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h struct {
		Height uint64 `json:"height"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, uint64(0), h.Height)
}

func TestServerErrorMapping(t *testing.T) {
	_, srv := newTestServer(t)
	resp, body := postJSON(t, srv.URL+"/v1/instantiate", instantiateBody(owner))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name: "insufficient funds",
			path: "/v1/execute",
			body: fmt.Sprintf(`{"sender": %q, "msg": {"transfer": {"recipient": %q, "amount": "100000"}}}`,
				owner, holder),
			wantStatus: http.StatusBadRequest,
			wantCode:   "insufficient_funds",
		},
		{
			name: "unauthorized mint",
			path: "/v1/execute",
			body: fmt.Sprintf(`{"sender": %q, "msg": {"mint": {"recipient": %q, "amount": "1"}}}`,
				stranger, holder),
			wantStatus: http.StatusForbidden,
			wantCode:   "unauthorized",
		},
		{
			name: "zero amount",
			path: "/v1/execute",
			body: fmt.Sprintf(`{"sender": %q, "msg": {"transfer": {"recipient": %q, "amount": "0"}}}`,
				owner, holder),
			wantStatus: http.StatusBadRequest,
			wantCode:   "zero_amount",
		},
		{
			name:       "empty execute message",
			path:       "/v1/execute",
			body:       fmt.Sprintf(`{"sender": %q, "msg": {}}`, owner),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
		},
		{
			name:       "missing logo",
			path:       "/v1/query",
			body:       `{"msg": {"download_logo": {}}}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "malformed body",
			path:       "/v1/execute",
			body:       `{"sender": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))

			var errResp errorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.wantCode, errResp.Error.Code)
			assert.NotEmpty(t, errResp.Error.Message)
		})
	}
}

func TestServerReceiverRollback(t *testing.T) {
	host, srv := newTestServer(t)
	_, body := postJSON(t, srv.URL+"/v1/instantiate", instantiateBody(owner))
	require.NotEmpty(t, body)

	require.NoError(t, host.RegisterReceiver(staking, ReceiverFunc(func(context.Context, contract.ReceiveMsg) error {
		return errors.New("pool is full")
	})))

	sendBody := fmt.Sprintf(`{
		"sender": %q,
		"msg": {"send": {"contract": %q, "amount": "10", "msg": {"bond": {}}}}
	}`, owner, staking)
	resp, body := postJSON(t, srv.URL+"/v1/execute", sendBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	var errResp errorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "receive_rejected", errResp.Error.Code)

	// The whole invocation rolled back.
	queryBody := fmt.Sprintf(`{"msg": {"balance": {"address": %q}}}`, owner)
	resp, body = postJSON(t, srv.URL+"/v1/query", queryBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var q struct {
		Data token.BalanceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, "1000", q.Data.Balance.String())
}
