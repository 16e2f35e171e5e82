package invoices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository backs the service with in-memory maps so transactional
// behavior can be asserted without a database.
type mockRepository struct {
	invoices  map[int64]*Invoice
	materials map[int64]MaterialInfo
	movements []mockMovement
	nextID    int64
	counter   int

	txError error
}

type mockMovement struct {
	materialID int64
	delta      float64
	ref        string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		invoices:  make(map[int64]*Invoice),
		materials: make(map[int64]MaterialInfo),
		nextID:    1,
	}
}

func (m *mockRepository) addMaterial(info MaterialInfo) {
	m.materials[info.ID] = info
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := inv.Clone()
	return &out, nil
}

func (m *mockRepository) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.InvoiceNumber == number {
			out := inv.Clone()
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, req ListRequest) ([]Invoice, int, error) {
	result := []Invoice{}
	for _, inv := range m.invoices {
		if req.Status != nil && inv.Status != *req.Status {
			continue
		}
		result = append(result, inv.Clone())
	}
	return result, len(result), nil
}

func (m *mockRepository) GenerateInvoiceNumber(ctx context.Context, date time.Time) (string, error) {
	m.counter++
	return fmt.Sprintf("HD-%s-%04d", date.Format("20060102"), m.counter), nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, &mockTxRepo{mock: m})
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := t.mock.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := inv.Clone()
	return &out, nil
}

func (t *mockTxRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	id := t.mock.nextID
	t.mock.nextID++
	inv.ID = id
	stored := inv.Clone()
	t.mock.invoices[id] = &stored
	return id, nil
}

func (t *mockTxRepo) UpdateInvoice(ctx context.Context, inv Invoice) error {
	if _, ok := t.mock.invoices[inv.ID]; !ok {
		return ErrNotFound
	}
	stored := inv.Clone()
	t.mock.invoices[inv.ID] = &stored
	return nil
}

func (t *mockTxRepo) ReplaceItems(ctx context.Context, invoiceID int64, items []LineItem) error {
	inv, ok := t.mock.invoices[invoiceID]
	if !ok {
		return ErrNotFound
	}
	inv.Items = make([]LineItem, len(items))
	copy(inv.Items, items)
	return nil
}

func (t *mockTxRepo) GetMaterialsForUpdate(ctx context.Context, ids []int64) (map[int64]MaterialInfo, error) {
	out := make(map[int64]MaterialInfo, len(ids))
	for _, id := range ids {
		if m, ok := t.mock.materials[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (t *mockTxRepo) AdjustStock(ctx context.Context, materialID int64, delta float64, ref string) error {
	m, ok := t.mock.materials[materialID]
	if !ok {
		return ErrUnknownMaterial
	}
	m.Available += delta
	t.mock.materials[materialID] = m
	t.mock.movements = append(t.mock.movements, mockMovement{materialID: materialID, delta: delta, ref: ref})
	return nil
}

func newTestService() (*Service, *mockRepository) {
	mock := newMockRepository()
	mock.addMaterial(MaterialInfo{ID: 10, SKU: "XM-PC40", Name: "Xi măng PC40", Unit: "bao", UnitPrice: 85000, Available: 500})
	mock.addMaterial(MaterialInfo{ID: 20, SKU: "THEP-10", Name: "Thép phi 10", Unit: "cây", UnitPrice: 120000, Available: 200})
	return NewService(mock), mock
}

func createTestInvoice(t *testing.T, svc *Service) *Invoice {
	t.Helper()
	inv, err := svc.Create(context.Background(), CreateRequest{
		CustomerName:  "Anh Tuấn",
		CustomerPhone: "0901234567",
		Items: []ItemRequest{
			{MaterialID: 10, OrderedQuantity: 100},
			{MaterialID: 20, OrderedQuantity: 50},
		},
	})
	require.NoError(t, err)
	return inv
}

func TestServiceCreate(t *testing.T) {
	svc, mock := newTestService()
	ctx := context.Background()

	inv := createTestInvoice(t, svc)
	assert.Equal(t, "HD-"+time.Now().Format("20060102")+"-0001", inv.InvoiceNumber)
	assert.Equal(t, StatusPending, inv.Status)
	assert.Equal(t, PaymentUnpaid, inv.PaymentStatus)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Xi măng PC40", inv.Items[0].MaterialName)
	assert.Equal(t, 85000.0, inv.Items[0].UnitPrice)
	assert.Equal(t, 14500000.0, inv.TotalAmount)
	assert.Equal(t, inv.TotalAmount, inv.RemainingAmount)

	// Creation reserves nothing; stock moves on delivery.
	assert.Equal(t, 500.0, mock.materials[10].Available)
	assert.Empty(t, mock.movements)

	_, err := svc.GetByNumber(ctx, inv.InvoiceNumber)
	require.NoError(t, err)
}

func TestServiceCreateUnknownMaterial(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "Chị Hoa",
		Items:        []ItemRequest{{MaterialID: 99, OrderedQuantity: 1}},
	})
	assert.ErrorIs(t, err, ErrUnknownMaterial)
}

func TestServiceCreateInsufficientStock(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerName: "Chị Hoa",
		Items:        []ItemRequest{{MaterialID: 10, OrderedQuantity: 501}},
	})
	assert.ErrorIs(t, err, ErrInvalidEdit)
}

func TestServiceApplyDeliveryMovesStock(t *testing.T) {
	svc, mock := newTestService()
	ctx := context.Background()
	inv := createTestInvoice(t, svc)

	out, err := svc.ApplyDelivery(ctx, inv.ID, DeliveryRequest{ItemIndex: 0, DeliveredQuantity: 60})
	require.NoError(t, err)
	assert.Equal(t, 60.0, out.Items[0].DeliveredQuantity)
	assert.Equal(t, StatusConfirmed, out.Status)

	assert.Equal(t, 440.0, mock.materials[10].Available)
	require.Len(t, mock.movements, 1)
	assert.Equal(t, -60.0, mock.movements[0].delta)
	assert.Equal(t, fmt.Sprintf("invoice:%s:item:0", inv.InvoiceNumber), mock.movements[0].ref)
}

func TestServiceApplyDeliveryReductionReturnsStock(t *testing.T) {
	svc, mock := newTestService()
	ctx := context.Background()
	inv := createTestInvoice(t, svc)

	_, err := svc.ApplyDelivery(ctx, inv.ID, DeliveryRequest{ItemIndex: 0, DeliveredQuantity: 60})
	require.NoError(t, err)

	// Correcting 60 down to 40 puts 20 back on the shelf.
	out, err := svc.ApplyDelivery(ctx, inv.ID, DeliveryRequest{ItemIndex: 0, DeliveredQuantity: 40})
	require.NoError(t, err)
	assert.Equal(t, 40.0, out.Items[0].DeliveredQuantity)
	assert.Equal(t, 460.0, mock.materials[10].Available)
	require.Len(t, mock.movements, 2)
	assert.Equal(t, 20.0, mock.movements[1].delta)
}

func TestServiceApplyDeliveryIdempotentNoMovement(t *testing.T) {
	svc, mock := newTestService()
	ctx := context.Background()
	inv := createTestInvoice(t, svc)

	_, err := svc.ApplyDelivery(ctx, inv.ID, DeliveryRequest{ItemIndex: 0, DeliveredQuantity: 60})
	require.NoError(t, err)
	_, err = svc.ApplyDelivery(ctx, inv.ID, DeliveryRequest{ItemIndex: 0, DeliveredQuantity: 60})
	require.NoError(t, err)

	assert.Equal(t, 440.0, mock.materials[10].Available)
	assert.Len(t, mock.movements, 1)
}

func TestServiceApplyDeliveryInsufficientStock(t *testing.T) {
	svc, mock := newTestService()
	ctx := context.Background()
	inv := createTestInvoice(t, svc)

	m := mock.materials[10]
	m.Available = 30
	mock.materials[10] = m

	_, err := svc.ApplyDelivery(ctx, inv.ID, DeliveryRequest{ItemIndex: 0, DeliveredQuantity: 60})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Nothing committed.
	stored, err := svc.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.Items[0].DeliveredQuantity)
	assert.Empty(t, mock.movements)
}

func TestServiceSetStatusDeliveredConsumesRemainders(t *testing.T) {
	svc, mock := newTestService()
	ctx := context.Background()
	inv := createTestInvoice(t, svc)

	_, err := svc.ApplyDelivery(ctx, inv.ID, DeliveryRequest{ItemIndex: 0, DeliveredQuantity: 40})
	require.NoError(t, err)

	out, err := svc.SetStatus(ctx, inv.ID, StatusRequest{Status: StatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, out.Status)

	// 40 moved earlier, the remaining 60 and the full 50 move now.
	assert.Equal(t, 400.0, mock.materials[10].Available)
	assert.Equal(t, 150.0, mock.materials[20].Available)
	require.Len(t, mock.movements, 3)
}

func TestServiceSetStatusCancelled(t *testing.T) {
	svc, mock := newTestService()
	ctx := context.Background()
	inv := createTestInvoice(t, svc)

	out, err := svc.SetStatus(ctx, inv.ID, StatusRequest{Status: StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)
	assert.Empty(t, mock.movements)

	_, err = svc.ApplyDelivery(ctx, inv.ID, DeliveryRequest{ItemIndex: 0, DeliveredQuantity: 10})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestServiceProcessPayment(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	inv := createTestInvoice(t, svc)

	out, err := svc.ProcessPayment(ctx, inv.ID, PaymentRequest{Amount: 5000000, Method: "transfer"})
	require.NoError(t, err)
	assert.Equal(t, 5000000.0, out.PaidAmount)
	assert.Equal(t, PaymentPartial, out.PaymentStatus)
	assert.Equal(t, "transfer", out.PaymentMethod)
	assert.Equal(t, StatusPending, out.Status)

	_, err = svc.ProcessPayment(ctx, inv.ID, PaymentRequest{Amount: out.RemainingAmount + 1})
	assert.ErrorIs(t, err, ErrAmountExceedsRemaining)

	out, err = svc.ProcessPayment(ctx, inv.ID, PaymentRequest{Amount: out.RemainingAmount})
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, out.PaymentStatus)
	assert.Equal(t, 0.0, out.RemainingAmount)
}

func TestServiceUpdateItems(t *testing.T) {
	svc, mock := newTestService()
	ctx := context.Background()
	inv := createTestInvoice(t, svc)

	out, err := svc.UpdateItems(ctx, inv.ID, UpdateItemsRequest{
		Items: []ItemRequest{{MaterialID: 10, OrderedQuantity: 200}},
	})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 200.0, out.Items[0].OrderedQuantity)
	assert.Equal(t, 17000000.0, out.TotalAmount)

	// Edits move no stock.
	assert.Equal(t, 500.0, mock.materials[10].Available)
	assert.Empty(t, mock.movements)
}

func TestServiceUpdateItemsNotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateItems(context.Background(), 404, UpdateItemsRequest{
		Items: []ItemRequest{{MaterialID: 10, OrderedQuantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateRequest{CustomerName: "Chị Hoa"})
	assert.ErrorIs(t, err, ErrEmptyItems)

	_, err = svc.Create(context.Background(), CreateRequest{
		CustomerName: "Chị Hoa",
		Items:        []ItemRequest{{MaterialID: 10, OrderedQuantity: -2}},
	})
	require.Error(t, err)
}
