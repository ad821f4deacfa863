package wallet

import (
	"context"
	"log"

	"solana-position-engine/internal/solana"
)

// SignaturePusher receives settlement signatures observed out of band.
// Implemented by the reconciler.
type SignaturePusher interface {
	PushSignature(sig string)
}

// SignatureFeed forwards wallet log notifications to the reconciler so
// settlement activity is picked up ahead of the next poll. The feed is an
// accelerator only: the poll plus cursor remains the source of truth, and
// every pushed signature goes through the same dedup as polled ones.
type SignatureFeed struct {
	ws     solana.WSClient
	owner  string
	pusher SignaturePusher
	logger *log.Logger
}

// NewSignatureFeed creates a feed for the given wallet.
func NewSignatureFeed(ws solana.WSClient, owner string, pusher SignaturePusher, logger *log.Logger) *SignatureFeed {
	if logger == nil {
		logger = log.Default()
	}
	return &SignatureFeed{ws: ws, owner: owner, pusher: pusher, logger: logger}
}

// Run subscribes to logs mentioning the wallet and pushes signatures until
// ctx is canceled or the subscription channel closes.
func (f *SignatureFeed) Run(ctx context.Context) error {
	ch, err := f.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{f.owner}})
	if err != nil {
		return err
	}
	f.logger.Printf("signature feed: subscribed for %s", f.owner)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-ch:
			if !ok {
				return nil
			}
			if notif.Err != nil {
				continue
			}
			f.pusher.PushSignature(notif.Signature)
		}
	}
}
