package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// Head and timestamp lookups go straight to a JSON-RPC node. The node has no
// per-query record caps and no account indexing, which is all we need here.

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      int             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) rpcCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	reqBody, _ := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("rpc unmarshal: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	result, err := c.rpcCall(ctx, "eth_blockNumber", []interface{}{})
	if err != nil {
		return 0, err
	}
	var hexBlock string
	json.Unmarshal(result, &hexBlock)
	block := new(big.Int)
	block.SetString(strings.TrimPrefix(hexBlock, "0x"), 16)
	return block.Uint64(), nil
}

func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	blockHex := fmt.Sprintf("0x%x", blockNumber)
	result, err := c.rpcCall(ctx, "eth_getBlockByNumber", []interface{}{blockHex, false})
	if err != nil {
		return time.Time{}, err
	}
	var block struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(result, &block); err != nil || block.Timestamp == "" {
		return time.Time{}, fmt.Errorf("block %d: no timestamp in response", blockNumber)
	}
	ts := new(big.Int)
	ts.SetString(strings.TrimPrefix(block.Timestamp, "0x"), 16)
	return time.Unix(ts.Int64(), 0).UTC(), nil
}

func (c *Client) isContract(ctx context.Context, address string) bool {
	result, err := c.rpcCall(ctx, "eth_getCode", []interface{}{address, "latest"})
	if err != nil {
		return false
	}
	var code string
	json.Unmarshal(result, &code)
	return code != "0x" && code != "0x0" && len(code) > 4
}
