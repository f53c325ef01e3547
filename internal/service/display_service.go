package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/hypertrack/internal/domain"
)

// displayPageSize is the fixed page size for every dashboard tab.
const displayPageSize = 10

// statusPriority orders duplicate resolution and the synthetic status sort:
// a live active record beats a new one, which beats a closed one.
var statusPriority = map[domain.PositionStatus]int{
	domain.PositionStatusActive: 3,
	domain.PositionStatusNew:    2,
	domain.PositionStatusClosed: 1,
}

// ViewPage is one page of a dashboard tab after dedup, filtering, sorting,
// and pagination.
type ViewPage struct {
	Positions  []domain.DisplayPosition
	Page       int
	PageSize   int
	TotalPages int
	Total      int
}

// DisplayService merges the live snapshot with the persisted cohorts into
// the per-tab dashboard views. Page position is tracked independently per
// tab; sort state is shared across tabs, matching the dashboard's single
// sort header.
type DisplayService struct {
	positions domain.TrackedPositionStore
	hidden    domain.HiddenPositionStore
	addresses domain.AddressStore
	prices    *PriceService
	logger    *slog.Logger
	now       func() time.Time

	mu          sync.Mutex
	live        []domain.DisplayPosition
	pages       map[domain.Tab]int
	sortKey     string
	sortAsc     bool
	lastFilters domain.DisplayFilters
}

// NewDisplayService creates a DisplayService.
func NewDisplayService(
	positions domain.TrackedPositionStore,
	hidden domain.HiddenPositionStore,
	addresses domain.AddressStore,
	prices *PriceService,
	logger *slog.Logger,
) *DisplayService {
	return &DisplayService{
		positions: positions,
		hidden:    hidden,
		addresses: addresses,
		prices:    prices,
		logger:    logger.With(slog.String("component", "display")),
		now:       time.Now,
		pages:     make(map[domain.Tab]int),
		sortKey:   "duration",
		sortAsc:   false,
	}
}

// UpdateLive replaces the live snapshot view. Called by the tracker after
// every poll cycle.
func (s *DisplayService) UpdateLive(positions []domain.DisplayPosition) {
	cp := make([]domain.DisplayPosition, len(positions))
	copy(cp, positions)

	s.mu.Lock()
	s.live = cp
	s.mu.Unlock()
}

// SetPage moves one tab to the given page. Out-of-range pages are clamped at
// view time.
func (s *DisplayService) SetPage(tab domain.Tab, page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	s.pages[tab] = page
	s.mu.Unlock()
}

// Sort selects the sort key. Re-selecting the current key flips the
// direction; selecting a new key resets to ascending.
func (s *DisplayService) Sort(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.sortKey {
		s.sortAsc = !s.sortAsc
		return
	}
	s.sortKey = key
	s.sortAsc = true
}

// View produces one page of the requested tab. Changing the filters resets
// every tab's page back to 1.
func (s *DisplayService) View(ctx context.Context, tab domain.Tab, filters domain.DisplayFilters) (ViewPage, error) {
	s.mu.Lock()
	if filters != s.lastFilters {
		s.pages = make(map[domain.Tab]int)
		s.lastFilters = filters
	}
	live := s.live
	page := s.pages[tab]
	sortKey, sortAsc := s.sortKey, s.sortAsc
	s.mu.Unlock()

	if page < 1 {
		page = 1
	}

	merged, err := s.assemble(ctx, tab, live)
	if err != nil {
		return ViewPage{}, err
	}

	filtered := applyFilters(merged, filters)
	sortDisplay(filtered, sortKey, sortAsc)

	total := len(filtered)
	totalPages := (total + displayPageSize - 1) / displayPageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	lo := (page - 1) * displayPageSize
	hi := lo + displayPageSize
	if hi > total {
		hi = total
	}

	return ViewPage{
		Positions:  filtered[lo:hi],
		Page:       page,
		PageSize:   displayPageSize,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

// assemble gathers the tab's source sets, merges them with MergePositions,
// and applies the tab's hidden-status rule. The "all" tab is the only view
// that keeps hidden positions visible.
func (s *DisplayService) assemble(ctx context.Context, tab domain.Tab, live []domain.DisplayPosition) ([]domain.DisplayPosition, error) {
	now := s.now()

	hiddenKeys, err := s.hidden.List(ctx)
	if err != nil {
		return nil, err
	}
	hiddenSet := make(map[string]bool, len(hiddenKeys))
	for _, k := range hiddenKeys {
		hiddenSet[k] = true
	}

	addrs, err := s.addresses.List(ctx)
	if err != nil {
		return nil, err
	}
	addrsByID := make(map[string]domain.TrackedAddress, len(addrs))
	for _, a := range addrs {
		addrsByID[a.Address] = a
	}

	prices := s.prices.Prices(ctx)

	var sources [][]domain.DisplayPosition
	switch tab {
	case domain.TabActive, domain.TabNew:
		sources = append(sources, live)
	case domain.TabClosed:
		closed, err := s.positions.GetClosed(ctx)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s.toDisplay(closed, addrsByID, prices, now))
	case domain.TabHidden, domain.TabAll:
		all, err := s.positions.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		sources = append(sources, live, s.toDisplay(all, addrsByID, prices, now))
	default:
		return nil, domain.ErrInvalidInput
	}

	merged := MergePositions(sources...)

	out := merged[:0]
	for _, p := range merged {
		p.Hidden = hiddenSet[p.Key]
		switch tab {
		case domain.TabActive:
			if p.Hidden || p.Status != domain.PositionStatusActive {
				continue
			}
		case domain.TabNew:
			if p.Hidden || p.Status != domain.PositionStatusNew {
				continue
			}
		case domain.TabClosed:
			if p.Hidden || p.Status != domain.PositionStatusClosed {
				continue
			}
		case domain.TabHidden:
			if !p.Hidden {
				continue
			}
		case domain.TabAll:
			// Hidden positions stay visible here.
		}
		out = append(out, p)
	}
	return out, nil
}

// toDisplay converts persisted records into the display model, recomputing
// the effective status and pricing from the freshest data available.
func (s *DisplayService) toDisplay(
	records []domain.TrackedPosition,
	addrs map[string]domain.TrackedAddress,
	prices map[string]float64,
	now time.Time,
) []domain.DisplayPosition {
	out := make([]domain.DisplayPosition, 0, len(records))
	for _, rec := range records {
		addr := addrs[rec.Address]
		price := prices[rec.Coin]
		status := rec.EffectiveStatus(now)

		var pnl float64
		switch {
		case status == domain.PositionStatusClosed && rec.FinalPnL != nil:
			pnl = *rec.FinalPnL
		case price != 0:
			pnl = (price - rec.EntryPrice) * rec.Size
		}

		var pnlPct float64
		if notional := math.Abs(rec.Size) * rec.EntryPrice; notional != 0 {
			pnlPct = pnl / notional * 100
		}

		lev := rec.Leverage
		if lev < 1 {
			lev = 1
		}

		out = append(out, domain.DisplayPosition{
			Key:          rec.Key,
			Address:      rec.Address,
			Alias:        addr.Alias,
			Color:        addr.Color,
			Coin:         rec.Coin,
			Side:         rec.Side,
			Size:         rec.Size,
			EntryPrice:   rec.EntryPrice,
			CurrentPrice: price,
			Leverage:     rec.Leverage,
			PnL:          pnl,
			PnLPercent:   pnlPct,
			SizeUSD:      math.Abs(rec.Size*price) / float64(lev),
			Status:       status,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return out
}

// MergePositions reduces overlapping sources into one record per position
// key. Duplicates resolve by status priority (active > new > closed); at
// equal priority the record with a nonzero current price wins, so fresher
// data beats a zero placeholder.
func MergePositions(sources ...[]domain.DisplayPosition) []domain.DisplayPosition {
	byKey := make(map[string]domain.DisplayPosition)
	var order []string

	for _, src := range sources {
		for _, p := range src {
			existing, ok := byKey[p.Key]
			if !ok {
				byKey[p.Key] = p
				order = append(order, p.Key)
				continue
			}
			if better(p, existing) {
				byKey[p.Key] = p
			}
		}
	}

	out := make([]domain.DisplayPosition, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}

// better reports whether a should replace b under the dedup rules.
func better(a, b domain.DisplayPosition) bool {
	pa, pb := statusPriority[a.Status], statusPriority[b.Status]
	if pa != pb {
		return pa > pb
	}
	return a.CurrentPrice != 0 && b.CurrentPrice == 0
}

// applyFilters keeps positions matching every set filter. Matching is
// case-insensitive, exact or substring; the trader filter matches the
// address or the alias.
func applyFilters(positions []domain.DisplayPosition, f domain.DisplayFilters) []domain.DisplayPosition {
	if f.IsZero() {
		return positions
	}

	coin := strings.ToLower(f.Coin)
	trader := strings.ToLower(f.Trader)

	out := positions[:0]
	for _, p := range positions {
		if coin != "" && !strings.Contains(strings.ToLower(p.Coin), coin) {
			continue
		}
		if trader != "" &&
			!strings.Contains(strings.ToLower(p.Address), trader) &&
			!strings.Contains(strings.ToLower(p.Alias), trader) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sortDisplay stably sorts positions by the given key. "duration" orders by
// lifecycle start, "status" by the new > active > closed display priority;
// every other key maps to a display field.
func sortDisplay(positions []domain.DisplayPosition, key string, asc bool) {
	less := lessFunc(key)
	sort.SliceStable(positions, func(i, j int) bool {
		if asc {
			return less(positions[i], positions[j])
		}
		return less(positions[j], positions[i])
	})
}

// statusSortRank orders the synthetic "status" sort: new first, then
// active, then closed.
var statusSortRank = map[domain.PositionStatus]int{
	domain.PositionStatusNew:    3,
	domain.PositionStatusActive: 2,
	domain.PositionStatusClosed: 1,
}

func lessFunc(key string) func(a, b domain.DisplayPosition) bool {
	switch key {
	case "coin":
		return func(a, b domain.DisplayPosition) bool { return a.Coin < b.Coin }
	case "trader":
		return func(a, b domain.DisplayPosition) bool { return a.Address < b.Address }
	case "side":
		return func(a, b domain.DisplayPosition) bool { return a.Side < b.Side }
	case "size":
		return func(a, b domain.DisplayPosition) bool { return math.Abs(a.Size) < math.Abs(b.Size) }
	case "size_usd":
		return func(a, b domain.DisplayPosition) bool { return a.SizeUSD < b.SizeUSD }
	case "entry_price":
		return func(a, b domain.DisplayPosition) bool { return a.EntryPrice < b.EntryPrice }
	case "current_price":
		return func(a, b domain.DisplayPosition) bool { return a.CurrentPrice < b.CurrentPrice }
	case "liquidation_price":
		return func(a, b domain.DisplayPosition) bool { return a.LiquidationPrice < b.LiquidationPrice }
	case "leverage":
		return func(a, b domain.DisplayPosition) bool { return a.Leverage < b.Leverage }
	case "pnl":
		return func(a, b domain.DisplayPosition) bool { return a.PnL < b.PnL }
	case "pnl_percent":
		return func(a, b domain.DisplayPosition) bool { return a.PnLPercent < b.PnLPercent }
	case "status":
		return func(a, b domain.DisplayPosition) bool {
			return statusSortRank[a.Status] < statusSortRank[b.Status]
		}
	default: // "duration" and anything unrecognized
		return func(a, b domain.DisplayPosition) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}
