package ethereum

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/walletwatch/service/wallet"
)

const testAddress = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

// mockClient implements Client for testing. Call counters let tests assert
// that failed operations never reached the network.
type mockClient struct {
	balance    *big.Int
	balanceErr error
	chainID    *big.Int
	nonce      uint64
	gasPrice   *big.Int
	sendErr    error

	balanceCalls int
	nonceCalls   int
	sendCalls    int
	sentTx       *types.Transaction
}

func newMockClient() *mockClient {
	return &mockClient{
		balance:  big.NewInt(1500000000000000000), // 1.5 ETH
		chainID:  big.NewInt(1),
		gasPrice: big.NewInt(20000000000),
	}
}

func (m *mockClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	m.balanceCalls++
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return m.balance, nil
}

func (m *mockClient) ChainID(ctx context.Context) (*big.Int, error) {
	return m.chainID, nil
}

func (m *mockClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	m.nonceCalls++
	return m.nonce, nil
}

func (m *mockClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return m.gasPrice, nil
}

func (m *mockClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.sendCalls++
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sentTx = tx
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWallet(t *testing.T, mock *mockClient, keyHex string) *Wallet {
	t.Helper()
	w, err := NewWallet(context.Background(), mock, Config{
		Address:       testAddress,
		PrivateKeyHex: keyHex,
	}, nil, testLogger())
	require.NoError(t, err)
	return w
}

func freshKeyHex(t *testing.T) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return "0x" + common.Bytes2Hex(crypto.FromECDSA(key))
}

func TestNewWallet_InvalidAddress(t *testing.T) {
	mock := newMockClient()
	_, err := NewWallet(context.Background(), mock, Config{Address: "not-an-address"}, nil, testLogger())
	require.Error(t, err)
	assert.Zero(t, mock.balanceCalls)
}

func TestNewWallet_BadPrivateKey(t *testing.T) {
	_, err := NewWallet(context.Background(), newMockClient(), Config{
		Address:       testAddress,
		PrivateKeyHex: "zzzz",
	}, nil, testLogger())
	require.Error(t, err)
}

func TestNewWallet_InitialReadFailureIsFatal(t *testing.T) {
	mock := newMockClient()
	mock.balanceErr = errors.New("rpc down")
	_, err := NewWallet(context.Background(), mock, Config{Address: testAddress}, nil, testLogger())
	require.Error(t, err)
}

func TestFetchBalance_ConvertsWeiToEth(t *testing.T) {
	w := newTestWallet(t, newMockClient(), "")

	balance, err := w.FetchBalance(context.Background(), "eth")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("1.5")), "balance %s", balance)
}

func TestFetchBalance_UnsupportedAsset(t *testing.T) {
	w := newTestWallet(t, newMockClient(), "")
	_, err := w.FetchBalance(context.Background(), "usdc")
	require.ErrorIs(t, err, wallet.ErrUnsupportedAsset)
}

func TestFetchBalance_StaleFallbackOnRPCFailure(t *testing.T) {
	mock := newMockClient()
	w := newTestWallet(t, mock, "")

	mock.balanceErr = errors.New("connection reset")
	balance, err := w.FetchBalance(context.Background(), "eth")
	require.NoError(t, err, "transient RPC failures must not surface as errors")
	assert.True(t, balance.Equal(decimal.RequireFromString("1.5")), "balance %s", balance)
}

func TestTransfer_ReadOnlyMode(t *testing.T) {
	mock := newMockClient()
	w := newTestWallet(t, mock, "")

	result := w.Transfer(context.Background(), testAddress, decimal.NewFromInt(1), "eth")
	require.NotNil(t, result)
	assert.Equal(t, wallet.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "read-only")
	assert.Zero(t, mock.nonceCalls, "read-only transfer must not touch the network")
	assert.Zero(t, mock.sendCalls)
}

func TestTransfer_RejectsBadInputsBeforeNetwork(t *testing.T) {
	mock := newMockClient()
	w := newTestWallet(t, mock, freshKeyHex(t))

	tests := []struct {
		name   string
		to     string
		amount decimal.Decimal
		asset  string
	}{
		{"zero amount", testAddress, decimal.Zero, "eth"},
		{"negative amount", testAddress, decimal.NewFromInt(-1), "eth"},
		{"bad address", "nope", decimal.NewFromInt(1), "eth"},
		{"unsupported asset", testAddress, decimal.NewFromInt(1), "doge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := w.Transfer(context.Background(), tt.to, tt.amount, tt.asset)
			assert.Equal(t, wallet.StatusFailed, result.Status)
			assert.NotEmpty(t, result.Error)
		})
	}
	assert.Zero(t, mock.nonceCalls)
	assert.Zero(t, mock.sendCalls)
}

func TestTransfer_Success(t *testing.T) {
	mock := newMockClient()
	mock.nonce = 7
	w := newTestWallet(t, mock, freshKeyHex(t))

	amount := decimal.RequireFromString("0.25")
	result := w.Transfer(context.Background(), testAddress, amount, "eth")
	require.NotNil(t, result)
	assert.Equal(t, wallet.StatusPending, result.Status)
	assert.NotEmpty(t, result.TxReference)
	assert.Empty(t, result.Error)

	require.NotNil(t, mock.sentTx)
	assert.Equal(t, uint64(7), mock.sentTx.Nonce())
	assert.Equal(t, params.TxGas, mock.sentTx.Gas())
	// 0.25 ETH in wei
	assert.Equal(t, "250000000000000000", mock.sentTx.Value().String())
}

func TestTransfer_SubmissionRejected(t *testing.T) {
	mock := newMockClient()
	mock.sendErr = errors.New("insufficient funds for gas")
	w := newTestWallet(t, mock, freshKeyHex(t))

	result := w.Transfer(context.Background(), testAddress, decimal.NewFromInt(1), "eth")
	assert.Equal(t, wallet.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "insufficient funds")
}

func TestSignMessage(t *testing.T) {
	w := newTestWallet(t, newMockClient(), freshKeyHex(t))

	result := w.SignMessage(context.Background(), "hello world")
	require.NotNil(t, result)
	assert.Equal(t, wallet.StatusSuccess, result.Status)
	assert.Equal(t, "hello world", result.Message)
	// 65-byte signature, hex-encoded with 0x prefix
	assert.Len(t, result.Signature, 132)
	last := result.Signature[len(result.Signature)-2:]
	assert.Contains(t, []string{"1b", "1c"}, last, "V byte must use the 27/28 convention")
}

func TestSignMessage_ReadOnlyMode(t *testing.T) {
	w := newTestWallet(t, newMockClient(), "")
	result := w.SignMessage(context.Background(), "hello")
	assert.Equal(t, wallet.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "read-only")
}
