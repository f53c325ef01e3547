package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// NewPositionNotifier dispatches an alert for a position entering the "new"
// state. The returned bool reports whether the transport accepted the
// message.
type NewPositionNotifier interface {
	NotifyNewPosition(ctx context.Context, addr domain.TrackedAddress, pos domain.RawPosition) bool
}

// LiveSink receives the freshly classified live view after each cycle.
type LiveSink interface {
	UpdateLive(positions []domain.DisplayPosition)
}

// NotificationRequest is one pending alert produced by reconciliation.
type NotificationRequest struct {
	Addr domain.TrackedAddress
	Pos  domain.RawPosition
}

// Closure is one position the exchange no longer reports open, together
// with the settlement values computed from the freshest available price.
type Closure struct {
	Position       domain.TrackedPosition
	ExitPrice      float64
	FinalPnL       float64
	PnLPercent     float64
	HoldingMinutes int64
}

// ReconcileResult is the full outcome of diffing one snapshot against the
// tracked set. It is produced by the pure Reconcile function and applied by
// RunCycle.
type ReconcileResult struct {
	Upserts       []domain.TrackedPosition
	Closures      []Closure
	Notifications []NotificationRequest
	Live          []domain.DisplayPosition
}

// CycleSummary reports what one poll cycle did.
type CycleSummary struct {
	Addresses   int
	Observed    int
	Opened      int
	Closed      int
	Notified    int
	StoreErrors int
	Duration    time.Duration
}

// TrackerService owns the position lifecycle: it diffs each fresh snapshot
// against the tracked set, classifies every position, persists the results,
// and emits notifications and bus events.
type TrackerService struct {
	addresses  domain.AddressStore
	positions  domain.TrackedPositionStore
	history    domain.HistoryStore
	snapshots  *SnapshotService
	prices     *PriceService
	dispatcher NewPositionNotifier
	live       LiveSink
	bus        domain.SignalBus
	logger     *slog.Logger
	now        func() time.Time
}

// NewTrackerService creates a TrackerService with all required dependencies.
// dispatcher, live, and bus may be nil, in which case the corresponding side
// channel is skipped.
func NewTrackerService(
	addresses domain.AddressStore,
	positions domain.TrackedPositionStore,
	history domain.HistoryStore,
	snapshots *SnapshotService,
	prices *PriceService,
	dispatcher NewPositionNotifier,
	live LiveSink,
	bus domain.SignalBus,
	logger *slog.Logger,
) *TrackerService {
	return &TrackerService{
		addresses:  addresses,
		positions:  positions,
		history:    history,
		snapshots:  snapshots,
		prices:     prices,
		dispatcher: dispatcher,
		live:       live,
		bus:        bus,
		logger:     logger.With(slog.String("component", "tracker")),
		now:        time.Now,
	}
}

// Reconcile diffs a fresh snapshot against the previously tracked set. It is
// a pure function over its inputs: no I/O, no clock reads.
//
// Classification per observed position:
//   - no prior record            → new (plus a notification when opted in)
//   - prior new, within window   → stays new
//   - prior new, window elapsed  → promoted to active
//   - prior active               → active
//   - prior closed (reopen)      → active with a fresh lifecycle start
//
// Closures are evaluated only after the complete fresh key set is known, so
// a position briefly absent mid-batch is never closed by accident.
func Reconcile(
	now time.Time,
	snapshots []domain.AccountSnapshot,
	tracked []domain.TrackedPosition,
	addrs map[string]domain.TrackedAddress,
	prices map[string]float64,
) ReconcileResult {
	var res ReconcileResult

	trackedByKey := make(map[string]domain.TrackedPosition, len(tracked))
	for _, p := range tracked {
		trackedByKey[p.Key] = p
	}

	freshKeys := make(map[string]bool)

	for _, snap := range snapshots {
		addr := addrs[snap.Address]
		for _, raw := range snap.Positions {
			key := raw.Key()
			freshKeys[key] = true

			prev, existed := trackedByKey[key]

			var status domain.PositionStatus
			createdAt := now
			switch {
			case !existed:
				status = domain.PositionStatusNew
				if addr.NotificationsEnabled {
					res.Notifications = append(res.Notifications, NotificationRequest{Addr: addr, Pos: raw})
				}
			case prev.EffectiveStatus(now) == domain.PositionStatusClosed:
				// Reopen: same key, fresh lifecycle instance.
				status = domain.PositionStatusActive
			case prev.Status == domain.PositionStatusNew && now.Sub(prev.CreatedAt) < domain.NewPositionWindow:
				status = domain.PositionStatusNew
				createdAt = prev.CreatedAt
			default:
				// An active record stays active regardless of age.
				status = domain.PositionStatusActive
				createdAt = prev.CreatedAt
			}

			res.Upserts = append(res.Upserts, domain.TrackedPosition{
				Key:         key,
				Address:     raw.Address,
				Coin:        raw.Coin,
				Side:        raw.Side(),
				Size:        raw.Size,
				EntryPrice:  raw.EntryPrice,
				Leverage:    raw.Leverage,
				Status:      status,
				IsActive:    true,
				CreatedAt:   createdAt,
				LastUpdated: now,
			})

			price := prices[raw.Coin]
			res.Live = append(res.Live, domain.DisplayPosition{
				Key:              key,
				Address:          raw.Address,
				Alias:            addr.Alias,
				Color:            addr.Color,
				Coin:             raw.Coin,
				Side:             raw.Side(),
				Size:             raw.Size,
				EntryPrice:       raw.EntryPrice,
				CurrentPrice:     price,
				LiquidationPrice: raw.LiquidationPrice,
				Leverage:         raw.Leverage,
				PnL:              raw.UnrealizedPnL,
				PnLPercent:       raw.PnLPercent(),
				SizeUSD:          raw.SizeUSD(price),
				Status:           status,
				CreatedAt:        createdAt,
			})
		}
	}

	// Closure pass: runs strictly after all fresh keys are gathered.
	for _, prev := range tracked {
		if freshKeys[prev.Key] {
			continue
		}
		if prev.Status == domain.PositionStatusClosed || !prev.IsActive {
			continue
		}

		exitPrice, ok := prices[prev.Coin]
		if !ok || exitPrice == 0 {
			exitPrice = prev.EntryPrice
		}
		finalPnL := (exitPrice - prev.EntryPrice) * prev.Size

		var pnlPct float64
		if notional := math.Abs(prev.Size) * prev.EntryPrice; notional != 0 {
			pnlPct = finalPnL / notional * 100
		}

		res.Closures = append(res.Closures, Closure{
			Position:       prev,
			ExitPrice:      exitPrice,
			FinalPnL:       finalPnL,
			PnLPercent:     pnlPct,
			HoldingMinutes: int64(now.Sub(prev.CreatedAt).Minutes()),
		})
	}

	return res
}

// RunCycle executes one full poll cycle: snapshot fetch, reconciliation, and
// the application of every resulting mutation. Individual store failures are
// logged and counted but never abort the cycle; the next poll re-upserts the
// same keys.
func (s *TrackerService) RunCycle(ctx context.Context) (CycleSummary, error) {
	start := s.now()

	addresses, err := s.addresses.List(ctx)
	if err != nil {
		return CycleSummary{}, err
	}
	if len(addresses) == 0 {
		return CycleSummary{Duration: s.now().Sub(start)}, nil
	}

	snapshots, err := s.snapshots.FetchAll(ctx, addresses)
	if err != nil {
		return CycleSummary{}, err
	}

	tracked, err := s.positions.GetAll(ctx)
	if err != nil {
		return CycleSummary{}, err
	}

	addrsByID := make(map[string]domain.TrackedAddress, len(addresses))
	for _, a := range addresses {
		addrsByID[a.Address] = a
	}

	prices := s.prices.Prices(ctx)
	now := s.now()

	res := Reconcile(now, snapshots, tracked, addrsByID, prices)

	summary := CycleSummary{
		Addresses: len(addresses),
		Observed:  len(res.Upserts),
	}

	for _, up := range res.Upserts {
		if err := s.positions.Upsert(ctx, up); err != nil {
			summary.StoreErrors++
			s.logger.ErrorContext(ctx, "position upsert failed",
				slog.String("key", up.Key),
				slog.String("error", err.Error()),
			)
			continue
		}
		if up.Status == domain.PositionStatusNew && up.CreatedAt.Equal(now) {
			summary.Opened++
			s.publish(ctx, "positions", map[string]any{
				"event":       "position_opened",
				"key":         up.Key,
				"coin":        up.Coin,
				"side":        string(up.Side),
				"size":        up.Size,
				"entry_price": up.EntryPrice,
			})
		}
	}

	for _, cl := range res.Closures {
		if err := s.positions.Close(ctx, cl.Position.Key, cl.FinalPnL, cl.ExitPrice, now, cl.HoldingMinutes); err != nil {
			summary.StoreErrors++
			s.logger.ErrorContext(ctx, "position close failed",
				slog.String("key", cl.Position.Key),
				slog.String("error", err.Error()),
			)
			continue
		}

		rec := domain.PositionHistory{
			ID:             uuid.NewString(),
			Key:            cl.Position.Key,
			Address:        cl.Position.Address,
			Coin:           cl.Position.Coin,
			Side:           cl.Position.Side,
			Size:           cl.Position.Size,
			EntryPrice:     cl.Position.EntryPrice,
			ExitPrice:      cl.ExitPrice,
			PnL:            cl.FinalPnL,
			PnLPercent:     cl.PnLPercent,
			HoldingMinutes: cl.HoldingMinutes,
			ClosedAt:       now,
		}
		if err := s.history.Append(ctx, rec); err != nil {
			summary.StoreErrors++
			s.logger.ErrorContext(ctx, "history append failed",
				slog.String("key", cl.Position.Key),
				slog.String("error", err.Error()),
			)
		}

		summary.Closed++
		s.publish(ctx, "positions", map[string]any{
			"event":     "position_closed",
			"key":       cl.Position.Key,
			"coin":      cl.Position.Coin,
			"final_pnl": cl.FinalPnL,
		})
	}

	if s.dispatcher != nil {
		for _, req := range res.Notifications {
			if s.dispatcher.NotifyNewPosition(ctx, req.Addr, req.Pos) {
				summary.Notified++
			}
		}
	}

	if s.live != nil {
		s.live.UpdateLive(res.Live)
	}

	summary.Duration = s.now().Sub(start)

	s.publish(ctx, "cycles", map[string]any{
		"event":    "cycle_complete",
		"observed": summary.Observed,
		"opened":   summary.Opened,
		"closed":   summary.Closed,
	})

	s.logger.InfoContext(ctx, "poll cycle complete",
		slog.Int("addresses", summary.Addresses),
		slog.Int("observed", summary.Observed),
		slog.Int("opened", summary.Opened),
		slog.Int("closed", summary.Closed),
		slog.Int("store_errors", summary.StoreErrors),
		slog.Duration("duration", summary.Duration),
	)

	return summary, nil
}

func (s *TrackerService) publish(ctx context.Context, channel string, payload map[string]any) {
	if s.bus == nil {
		return
	}
	data, _ := json.Marshal(payload)
	if err := s.bus.Publish(ctx, channel, data); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
