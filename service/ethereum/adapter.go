package ethereum

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Dial connects to an Ethereum JSON-RPC endpoint and returns a Client backed
// by the real ethclient. ethclient.Client already satisfies the Client
// interface; the wrapper exists so construction failures carry the endpoint.
func Dial(ctx context.Context, rpcURL string) (Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum at %s: %w", rpcURL, err)
	}
	return client, nil
}
