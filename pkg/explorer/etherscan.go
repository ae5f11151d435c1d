package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/surge-tracker/pkg/config"
)

// Client talks to the Etherscan v2 API for account-level queries and to a
// plain JSON-RPC node for block head and block timestamp lookups.
type Client struct {
	apiURL   string
	apiKey   string
	rpcURL   string
	chainID  int
	pageCap  int
	decimals int // for tokenbalance, which carries no decimals field
	client   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiURL:   cfg.GetExplorerURL(cfg.Chain),
		apiKey:   cfg.GetExplorerKey(cfg.Chain),
		rpcURL:   cfg.GetRPCURL(cfg.Chain),
		chainID:  cfg.GetChainID(cfg.Chain),
		pageCap:  cfg.MaxRecordsPerPage,
		decimals: cfg.TokenDecimals,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type etherscanRow = map[string]interface{}

type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) TokenTransfers(ctx context.Context, token string, fromBlock, toBlock uint64) ([]Transfer, bool, error) {
	url := fmt.Sprintf("%s?chainid=%d&module=account&action=tokentx&contractaddress=%s&startblock=%d&endblock=%d&page=1&offset=%d&sort=asc&apikey=%s",
		c.apiURL, c.chainID, token, fromBlock, toBlock, c.pageCap, c.apiKey)

	env, err := c.getEnvelope(ctx, url)
	if err != nil {
		return nil, false, err
	}

	if env.Status != "1" {
		if strings.Contains(env.Message, "No transactions found") {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tokentx [%d,%d]: %s", fromBlock, toBlock, env.Message)
	}

	var rows []etherscanRow
	if err := json.Unmarshal(env.Result, &rows); err != nil {
		return nil, false, fmt.Errorf("tokentx decode: %w", err)
	}

	transfers := make([]Transfer, 0, len(rows))
	occurrence := map[string]int{}
	for _, row := range rows {
		hash := str(row, "hash")
		if hash == "" {
			continue
		}
		decimals := int(parseInt64(str(row, "tokenDecimal")))
		amount, err := tokenAmount(str(row, "value"), decimals)
		if err != nil {
			continue
		}

		// tokentx rows omit logIndex, so a batch transaction emitting
		// several transfers would collapse to one dedup key. Row order per
		// transaction is stable under sort=asc, so the occurrence number
		// within the transaction keeps keys distinct and consistent across
		// re-fetches.
		logIdx := uint(occurrence[hash])
		occurrence[hash]++
		if v := str(row, "logIndex"); v != "" {
			logIdx = uint(parseInt64(v))
		}

		transfers = append(transfers, Transfer{
			TxHash:      hash,
			BlockNumber: parseUint64(str(row, "blockNumber")),
			LogIndex:    logIdx,
			Timestamp:   parseUnixStr(str(row, "timeStamp")),
			From:        strings.ToLower(str(row, "from")),
			To:          strings.ToLower(str(row, "to")),
			Amount:      amount,
		})
	}

	truncated := len(rows) >= c.pageCap
	return transfers, truncated, nil
}

func (c *Client) BlockByTime(ctx context.Context, ts time.Time, closest string) (uint64, error) {
	url := fmt.Sprintf("%s?chainid=%d&module=block&action=getblocknobytime&timestamp=%d&closest=%s&apikey=%s",
		c.apiURL, c.chainID, ts.Unix(), closest, c.apiKey)

	env, err := c.getEnvelope(ctx, url)
	if err != nil {
		return 0, err
	}
	if env.Status != "1" {
		return 0, fmt.Errorf("getblocknobytime %d: %s", ts.Unix(), env.Message)
	}

	var blockStr string
	if err := json.Unmarshal(env.Result, &blockStr); err != nil {
		return 0, fmt.Errorf("getblocknobytime decode: %w", err)
	}
	block := parseUint64(blockStr)
	if block == 0 {
		return 0, fmt.Errorf("getblocknobytime returned %q", blockStr)
	}
	return block, nil
}

func (c *Client) TokenBalance(ctx context.Context, token, address string, block uint64) (decimal.Decimal, error) {
	tag := "latest"
	if block > 0 {
		tag = fmt.Sprintf("%d", block)
	}
	url := fmt.Sprintf("%s?chainid=%d&module=account&action=tokenbalance&contractaddress=%s&address=%s&tag=%s&apikey=%s",
		c.apiURL, c.chainID, token, address, tag, c.apiKey)

	env, err := c.getEnvelope(ctx, url)
	if err != nil {
		return decimal.Zero, err
	}
	if env.Status != "1" {
		return decimal.Zero, fmt.Errorf("tokenbalance %s@%s: %s", abbrev(address), tag, env.Message)
	}

	var raw string
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("tokenbalance decode: %w", err)
	}
	return tokenAmount(raw, c.decimals)
}

func (c *Client) AddressMetadata(ctx context.Context, address string) (Metadata, error) {
	url := fmt.Sprintf("%s?chainid=%d&module=contract&action=getsourcecode&address=%s&apikey=%s",
		c.apiURL, c.chainID, address, c.apiKey)

	env, err := c.getEnvelope(ctx, url)
	if err != nil {
		return Metadata{}, err
	}
	if env.Status != "1" {
		return Metadata{}, fmt.Errorf("getsourcecode %s: %s", abbrev(address), env.Message)
	}

	var entries []struct {
		ContractName string `json:"ContractName"`
		ABI          string `json:"ABI"`
	}
	if err := json.Unmarshal(env.Result, &entries); err != nil {
		return Metadata{}, fmt.Errorf("getsourcecode decode: %w", err)
	}

	meta := Metadata{}
	if len(entries) > 0 && entries[0].ContractName != "" {
		meta.ContractName = entries[0].ContractName
		meta.IsContract = true
		meta.Verified = entries[0].ABI != "" && entries[0].ABI != "Contract source code not verified"
		return meta, nil
	}

	// Unverified contracts have no source entry — fall back to eth_getCode.
	if c.rpcURL != "" && c.isContract(ctx, address) {
		meta.IsContract = true
	}
	return meta, nil
}

func (c *Client) getEnvelope(ctx context.Context, url string) (*etherscanEnvelope, error) {
	body, err := c.getJSON(ctx, url)
	if err != nil {
		return nil, err
	}

	var env etherscanEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("explorer response: %w", err)
	}

	// Rate limits come back as status "0" with the reason in message or result.
	if env.Status != "1" {
		var resultStr string
		json.Unmarshal(env.Result, &resultStr)
		if isRateLimitText(env.Message) || isRateLimitText(resultStr) {
			return nil, ErrRateLimited
		}
		if env.Message == "NOTOK" && resultStr != "" {
			env.Message = resultStr
		}
	}
	return &env, nil
}

func isRateLimitText(s string) bool {
	return strings.Contains(strings.ToLower(s), "rate limit")
}

func (c *Client) getJSON(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("HTTP %d from explorer", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB max
}
