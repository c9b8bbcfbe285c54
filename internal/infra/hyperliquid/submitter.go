package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/infra"
)

// Signer produces the wallet signature the exchange endpoint requires over
// an action and nonce. Keeping it behind an interface keeps key handling
// out of the transport path.
type Signer interface {
	SignAction(action any, nonce uint64) (json.RawMessage, error)
	Address() string
}

// ExchangeClient submits orders to the venue. It implements
// execution.Submitter.
type ExchangeClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *infra.RateLimiter
	signer     Signer
	info       *InfoClient
}

// NewExchangeClient wires an order client. The info client resolves asset
// indexes; the signer holds the wallet.
func NewExchangeClient(baseURL string, info *InfoClient, signer Signer) *ExchangeClient {
	return &ExchangeClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: infra.GetExchangeLimiter(),
		signer:  signer,
		info:    info,
	}
}

// SubmitOrder signs and posts one limit order. A transport or signing
// failure returns an error; a venue rejection comes back as an unsuccessful
// result.
func (c *ExchangeClient) SubmitOrder(ctx context.Context, order domain.SliceOrder) (domain.SubmitResult, error) {
	meta, err := c.info.FetchInstrumentMeta(ctx, order.Coin)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("failed to resolve asset index: %w", err)
	}

	action := orderAction{
		Type: "order",
		Orders: []wireOrder{{
			Asset:      meta.AssetIndex,
			IsBuy:      order.Side == domain.SideBuy,
			Price:      order.LimitPx,
			Size:       order.Size,
			ReduceOnly: order.ReduceOnly,
			Type:       wireOrderType{Limit: wireLimit{TIF: string(order.TIF)}},
		}},
		Grouping: "na",
	}

	nonce := uint64(time.Now().UnixMilli())
	signature, err := c.signer.SignAction(action, nonce)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("failed to sign order: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"action":    action,
		"nonce":     nonce,
		"signature": signature,
	})
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("failed to marshal order request: %w", err)
	}

	c.limiter.Wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/exchange", bytes.NewReader(body))
	if err != nil {
		return domain.SubmitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return domain.SubmitResult{}, fmt.Errorf("exchange endpoint returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("failed to decode exchange response: %w", err)
	}

	return interpretResponse(order, parsed), nil
}

// interpretResponse folds the venue reply into a SubmitResult. Anything
// other than a clean ok status with a resting or filled order reads as a
// rejection.
func interpretResponse(order domain.SliceOrder, resp exchangeResponse) domain.SubmitResult {
	if resp.Status != "ok" {
		return domain.SubmitResult{Reason: fmt.Sprintf("venue status %q", resp.Status)}
	}
	statuses := resp.Response.Data.Statuses
	if len(statuses) == 0 {
		return domain.SubmitResult{Reason: "venue returned no order status"}
	}

	st := statuses[0]
	switch {
	case st.Error != "":
		return domain.SubmitResult{Reason: st.Error}
	case st.Filled != nil:
		slog.Info("order filled",
			slog.String("coin", order.Coin),
			slog.String("size", st.Filled.TotalSz),
			slog.String("avg_px", st.Filled.AvgPx))
		return domain.SubmitResult{Success: true, OrderID: strconv.FormatInt(st.Filled.Oid, 10)}
	case st.Resting != nil:
		return domain.SubmitResult{Success: true, OrderID: strconv.FormatInt(st.Resting.Oid, 10)}
	default:
		return domain.SubmitResult{Reason: "venue returned empty order status"}
	}
}
