package hyperliquid

import (
	"encoding/json"
	"testing"

	"github.com/Trong-Tra/Clione/internal/domain"
)

func TestL2BookResponse_ToSnapshot(t *testing.T) {
	raw := `{
		"coin": "BTC",
		"time": 1700000000000,
		"levels": [
			[{"px":"43250.0","sz":"2.5","n":3},{"px":"43249.5","sz":"1.0","n":1}],
			[{"px":"43250.5","sz":"1.8","n":2},{"px":"43251.0","sz":"4.2","n":5}]
		]
	}`

	var resp l2BookResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	snap, err := resp.toSnapshot()
	if err != nil {
		t.Fatalf("toSnapshot failed: %v", err)
	}
	if snap.Coin != "BTC" {
		t.Errorf("coin = %q", snap.Coin)
	}
	if snap.BestBid().Price != 43250.0 || snap.BestAsk().Price != 43250.5 {
		t.Errorf("top of book = %v / %v", snap.BestBid().Price, snap.BestAsk().Price)
	}
	if len(snap.Bids) != 2 || len(snap.Asks) != 2 {
		t.Errorf("depth = %d bids, %d asks", len(snap.Bids), len(snap.Asks))
	}
	if snap.Asks[1].Size != 4.2 {
		t.Errorf("ask level size = %v", snap.Asks[1].Size)
	}
}

func TestL2BookResponse_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"one side only", `{"coin":"BTC","levels":[[{"px":"1","sz":"1"}]]}`},
		{"three sides", `{"coin":"BTC","levels":[[],[],[]]}`},
		{"bad price", `{"coin":"BTC","levels":[[{"px":"abc","sz":"1"}],[]]}`},
		{"negative price", `{"coin":"BTC","levels":[[{"px":"-5","sz":"1"}],[]]}`},
		{"negative size", `{"coin":"BTC","levels":[[],[{"px":"5","sz":"-1"}]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp l2BookResponse
			if err := json.Unmarshal([]byte(tt.raw), &resp); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if _, err := resp.toSnapshot(); err == nil {
				t.Error("expected conversion to fail")
			}
		})
	}
}

func TestWsCandle_ToBar(t *testing.T) {
	raw := `{"t":1700000000000,"T":1700000059999,"s":"BTC","i":"1m",
		"o":"43200.0","c":"43250.0","h":"43260.0","l":"43190.0","v":"12.5","n":240}`

	var c wsCandle
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	bar, err := c.toBar()
	if err != nil {
		t.Fatalf("toBar failed: %v", err)
	}
	if bar.High != 43260.0 || bar.Low != 43190.0 || bar.Close != 43250.0 || bar.Volume != 12.5 {
		t.Errorf("bar mismatch: %+v", bar)
	}
	if bar.Ts.UnixMilli() != 1700000000000 {
		t.Errorf("ts = %v", bar.Ts)
	}
	if !bar.Valid() {
		t.Error("expected a valid bar")
	}

	c.High = "oops"
	if _, err := c.toBar(); err == nil {
		t.Error("expected error for malformed high")
	}
}

func TestMetaResponse_Find(t *testing.T) {
	resp := metaResponse{Universe: []assetMeta{
		{Name: "BTC", SzDecimals: 5},
		{Name: "ETH", SzDecimals: 4},
		{Name: "OLD", SzDecimals: 2, IsDelisted: true},
	}}

	meta, err := resp.find("ETH")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if meta.AssetIndex != 1 || meta.SizeDecimals != 4 {
		t.Errorf("meta = %+v", meta)
	}

	if _, err := resp.find("OLD"); err == nil {
		t.Error("expected error for delisted coin")
	}
	if _, err := resp.find("DOGE"); err == nil {
		t.Error("expected error for unknown coin")
	}
}

func TestInterpretResponse(t *testing.T) {
	order := domain.SliceOrder{Coin: "BTC", Side: domain.SideBuy}

	t.Run("filled order succeeds", func(t *testing.T) {
		var resp exchangeResponse
		raw := `{"status":"ok","response":{"type":"order","data":{"statuses":[
			{"filled":{"oid":77738308,"totalSz":"0.02","avgPx":"43250.1"}}]}}}`
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		res := interpretResponse(order, resp)
		if !res.Success || res.OrderID != "77738308" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("resting order succeeds", func(t *testing.T) {
		var resp exchangeResponse
		raw := `{"status":"ok","response":{"type":"order","data":{"statuses":[
			{"resting":{"oid":12345}}]}}}`
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		res := interpretResponse(order, resp)
		if !res.Success || res.OrderID != "12345" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("per-order error rejects", func(t *testing.T) {
		var resp exchangeResponse
		raw := `{"status":"ok","response":{"type":"order","data":{"statuses":[
			{"error":"Insufficient margin"}]}}}`
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		res := interpretResponse(order, resp)
		if res.Success || res.Reason != "Insufficient margin" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("err status rejects", func(t *testing.T) {
		res := interpretResponse(order, exchangeResponse{Status: "err"})
		if res.Success || res.Reason == "" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("empty statuses rejects", func(t *testing.T) {
		res := interpretResponse(order, exchangeResponse{Status: "ok"})
		if res.Success {
			t.Errorf("result = %+v", res)
		}
	})
}
