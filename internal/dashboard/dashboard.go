// Package dashboard computes the landlord's summary statistics. Nothing is
// cached: every call reads current state for a single period.
package dashboard

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/store"
)

const (
	trendMonths   = 7
	recentLimit   = 6
	topHouseLimit = 5
	unknownName   = "Unknown"
)

type Aggregator struct {
	houses   *store.HouseStore
	tenants  *store.TenantStore
	payments *store.PaymentStore
	now      func() time.Time
	loc      *time.Location
}

func New(db *sql.DB, now func() time.Time, loc *time.Location) *Aggregator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		houses:   store.NewHouseStore(db),
		tenants:  store.NewTenantStore(db),
		payments: store.NewPaymentStore(db),
		now:      now,
		loc:      loc,
	}
}

// CurrentPeriod reads the clock once in the configured zone.
func (a *Aggregator) CurrentPeriod() model.Period {
	return model.PeriodOf(a.now().In(a.loc))
}

// Compute builds the stats for period, or for the current period when
// period is empty.
func (a *Aggregator) Compute(ctx context.Context, period model.Period) (*model.DashboardStats, error) {
	if period == "" {
		period = a.CurrentPeriod()
	}

	var (
		total, occupied int
		occupiedHouses  []model.House
		assigned        []model.Tenant
		paid            map[int64]struct{}
		received        float64
		byHouse         map[int64]float64
		byPeriod        map[model.Period]float64
		recent          []model.PaymentDetail
	)
	first := period.AddMonths(-(trendMonths - 1))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, occupied, err = a.houses.Counts(gctx)
		return err
	})
	g.Go(func() (err error) {
		occupiedHouses, err = a.houses.ListOccupied(gctx)
		return err
	})
	g.Go(func() (err error) {
		assigned, err = a.tenants.ListAssigned(gctx)
		return err
	})
	g.Go(func() (err error) {
		paid, err = a.payments.PaidTenantIDs(gctx, period)
		return err
	})
	g.Go(func() (err error) {
		received, err = a.payments.TotalForPeriod(gctx, period, nil)
		return err
	})
	g.Go(func() (err error) {
		byHouse, err = a.payments.TotalsByHouse(gctx, period)
		return err
	})
	g.Go(func() (err error) {
		byPeriod, err = a.payments.TotalsByPeriod(gctx, first, period)
		return err
	})
	g.Go(func() (err error) {
		recent, err = a.payments.Recent(gctx, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{
		Period:            period,
		TotalUnits:        total,
		OccupiedUnits:     occupied,
		VacantUnits:       total - occupied,
		TotalReceivedRent: received,
		OccupancyRate:     occupancyRate(occupied, total),
		MonthlyRevenue:    monthlyRevenue(first, byPeriod),
		RecentPayments:    recentPayments(recent),
		TopHouses:         topHouses(occupiedHouses, byHouse),
	}
	for _, h := range occupiedHouses {
		stats.TotalExpectedRent += h.RentAmount
	}
	stats.OutstandingRent = stats.TotalExpectedRent - stats.TotalReceivedRent
	for _, t := range assigned {
		if _, ok := paid[t.ID]; !ok {
			stats.OverdueTenants++
		}
	}
	return stats, nil
}

// occupancyRate is a percentage to one decimal place, half to even.
func occupancyRate(occupied, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.RoundToEven(float64(occupied)/float64(total)*1000) / 10
}

func monthlyRevenue(first model.Period, totals map[model.Period]float64) []model.MonthlyRevenue {
	out := make([]model.MonthlyRevenue, trendMonths)
	for i := range out {
		p := first.AddMonths(i)
		out[i] = model.MonthlyRevenue{Month: p.Label(), Period: p, Amount: totals[p]}
	}
	return out
}

func recentPayments(details []model.PaymentDetail) []model.RecentPayment {
	out := make([]model.RecentPayment, 0, len(details))
	for _, d := range details {
		rp := model.RecentPayment{
			ID:         d.ID,
			TenantName: unknownName,
			HouseName:  unknownName,
			Amount:     d.AmountPaid,
			Method:     d.PaymentMethod,
			Date:       d.PaymentDate,
		}
		if d.TenantName != nil {
			rp.TenantName = *d.TenantName
		}
		if d.HouseName != nil {
			rp.HouseName = *d.HouseName
		}
		out = append(out, rp)
	}
	return out
}

// topHouses ranks occupied houses by this period's revenue. Ties keep
// house id order.
func topHouses(houses []model.House, received map[int64]float64) []model.TopHouse {
	out := make([]model.TopHouse, 0, len(houses))
	for _, h := range houses {
		out = append(out, model.TopHouse{Name: h.Name, Expected: h.RentAmount, Received: received[h.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Received > out[j].Received })
	if len(out) > topHouseLimit {
		out = out[:topHouseLimit]
	}
	return out
}
