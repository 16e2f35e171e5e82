package analytics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-erp/vlxd-erp/internal/inventory"
)

type mockRepo struct {
	revenue      RevenueSummary
	revenueCalls int
	top          []TopMaterial
	topCalls     int
	statuses     StatusBreakdown
	statusCalls  int
}

func (m *mockRepo) RevenueSummary(ctx context.Context, from, to time.Time) (RevenueSummary, error) {
	m.revenueCalls++
	return m.revenue, nil
}

func (m *mockRepo) TopMaterials(ctx context.Context, from, to time.Time, limit int) ([]TopMaterial, error) {
	m.topCalls++
	return m.top, nil
}

func (m *mockRepo) StatusBreakdown(ctx context.Context) (StatusBreakdown, error) {
	m.statusCalls++
	return m.statuses, nil
}

type mockStock struct {
	low       []inventory.Material
	calls     int
	threshold float64
}

func (m *mockStock) LowStock(ctx context.Context, threshold float64) ([]inventory.Material, error) {
	m.calls++
	m.threshold = threshold
	return m.low, nil
}

func newTestService(t *testing.T, repo RepositoryPort, stock InventoryPort) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, stock, NewCache(client, time.Minute), 10)
}

func TestRevenueCaches(t *testing.T) {
	repo := &mockRepo{revenue: RevenueSummary{InvoiceCount: 4, TotalRevenue: 42000000, TotalPaid: 30000000, Outstanding: 12000000}}
	svc := newTestService(t, repo, &mockStock{})
	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	first, err := svc.Revenue(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 42000000.0, first.TotalRevenue)
	assert.Equal(t, 1, repo.revenueCalls)

	second, err := svc.Revenue(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.revenueCalls)
}

func TestInvalidateBustsCache(t *testing.T) {
	repo := &mockRepo{statuses: StatusBreakdown{Pending: 2, Delivered: 5}}
	svc := newTestService(t, repo, &mockStock{})
	ctx := context.Background()

	_, err := svc.Statuses(ctx)
	require.NoError(t, err)
	_, err = svc.Statuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.statusCalls)

	require.NoError(t, svc.Invalidate(ctx))

	_, err = svc.Statuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.statusCalls)
}

func TestTopMaterialsLimitDefaults(t *testing.T) {
	repo := &mockRepo{top: []TopMaterial{{MaterialID: 10, MaterialName: "Xi măng PC40", DeliveredQty: 300}}}
	svc := newTestService(t, repo, &mockStock{})
	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	top, err := svc.TopMaterials(ctx, from, to, -1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, repo.topCalls)
}

func TestLowStockIsNeverCached(t *testing.T) {
	stock := &mockStock{low: []inventory.Material{{ID: 1, SKU: "XM-PC40", AvailableQuantity: 3}}}
	svc := newTestService(t, &mockRepo{}, stock)
	ctx := context.Background()

	_, err := svc.LowStock(ctx)
	require.NoError(t, err)
	_, err = svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stock.calls)
	assert.Equal(t, 10.0, stock.threshold)
}

func TestServiceWithoutCache(t *testing.T) {
	repo := &mockRepo{revenue: RevenueSummary{InvoiceCount: 1}}
	svc := NewService(repo, &mockStock{}, nil, 10)
	ctx := context.Background()
	from := time.Now().AddDate(0, -1, 0)

	out, err := svc.Revenue(ctx, from, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, out.InvoiceCount)

	_, err = svc.Revenue(ctx, from, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.revenueCalls)
}
