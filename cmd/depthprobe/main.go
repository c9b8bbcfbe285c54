// depthprobe fetches a live order book and reports how much size it can
// absorb: per-size slippage estimates and the largest order that stays
// inside a slippage tolerance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Trong-Tra/Clione/internal/depth"
	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/infra/hyperliquid"
)

func main() {
	var (
		coin      = flag.String("coin", "BTC", "coin to probe")
		side      = flag.String("side", "BUY", "BUY or SELL")
		size      = flag.Float64("size", 1.0, "order size to estimate")
		tolerance = flag.Float64("slippage", 1.0, "slippage tolerance in percent")
		url       = flag.String("url", hyperliquid.MainnetURL, "info endpoint")
	)
	flag.Parse()

	orderSide := domain.Side(*side)
	if !orderSide.Valid() {
		fmt.Fprintf(os.Stderr, "invalid side %q\n", *side)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := hyperliquid.NewInfoClient(*url)
	book, err := client.FetchOrderBook(ctx, *coin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "book fetch failed: %v\n", err)
		os.Exit(1)
	}

	analysis := depth.Analyze(book)
	fmt.Printf("=== %s depth ===\n", *coin)
	fmt.Printf("best bid/ask:   %.6g / %.6g\n", book.BestBid().Price, book.BestAsk().Price)
	fmt.Printf("spread:         %.6g (%.4f%%)\n", analysis.Spread, analysis.SpreadPct)
	fmt.Printf("bid depth:      %.6g across %d levels\n", analysis.TotalBidVolume, analysis.BidDepth)
	fmt.Printf("ask depth:      %.6g across %d levels\n", analysis.TotalAskVolume, analysis.AskDepth)
	fmt.Println()

	est := depth.EstimateSlippage(book, *size, orderSide)
	fmt.Printf("=== %s %.6g %s ===\n", orderSide, *size, *coin)
	if !est.WouldExecute {
		fmt.Println("book cannot fill this size")
	} else {
		fmt.Printf("est. avg price: %.6g\n", est.EstimatedPrice)
		fmt.Printf("est. slippage:  %.4f%%\n", est.SlippagePct)
	}

	maxSize := depth.MaxSizeWithinSlippage(book, orderSide, *tolerance)
	fmt.Printf("max size within %.2f%% slippage: %.6g\n", *tolerance, maxSize)
}
