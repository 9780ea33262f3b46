package repository_test

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ledgerworks/payments/internal/adapters/repository"
	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "payments.db")), repository.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), repository.GormConfig())
	require.NoError(t, err)
	return gormDB, mock
}

func newOrder(id string) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:         id,
		UserID:     "U1",
		Items:      []domain.OrderItem{{ServiceRef: "svc-basic", ServiceName: "Basic Plan", Quantity: 1, UnitPriceMinor: 100000}},
		TotalMinor: 100000,
		Currency:   "ZAR",
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormOrderRepository(setupSQLite(t))

	require.NoError(t, repo.Create(ctx, newOrder("O1")))

	got, err := repo.Get(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), got.TotalMinor)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Basic Plan", got.Items[0].ServiceName)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	ok, err := repo.TransitionStatus(ctx, "O1", domain.OrderStatusPending, domain.OrderStatusPaid)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, "O1", domain.OrderStatusPending, domain.OrderStatusPaymentFailed)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = repo.Get(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)
}

func TestOrderRepository_ConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormOrderRepository(setupSQLite(t))
	require.NoError(t, repo.Create(ctx, newOrder("O1")))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := domain.OrderStatusPaid
			if i%2 == 1 {
				to = domain.OrderStatusPaymentFailed
			}
			ok, err := repo.TransitionStatus(ctx, "O1", domain.OrderStatusPending, to)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestTransitionStatus_ConditionalUpdateSQL(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WithArgs(string(domain.OrderStatusPaid), sqlmock.AnyArg(), "O1", string(domain.OrderStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.TransitionStatus(context.Background(), "O1", domain.OrderStatusPending, domain.OrderStatusPaid)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormAttemptRepository(setupSQLite(t))

	first := &domain.PaymentAttempt{
		Reference:      "ORDER-O1-1",
		OrderID:        "O1",
		AmountMinor:    100000,
		Currency:       "ZAR",
		RequestPayload: []byte(`{"entityId":"E","amount":100000}`),
		Signature:      "abc",
		Status:         domain.AttemptStatusOpen,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, first))

	exists, err := repo.ReferenceExists(ctx, "ORDER-O1-1")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := *first
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrDuplicateReference)

	second := *first
	second.Reference = "ORDER-O1-2"
	require.NoError(t, repo.Create(ctx, &second))

	got, err := repo.FindByReference(ctx, "ORDER-O1-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptStatusSuperseded, got.Status)
	assert.Equal(t, first.RequestPayload, got.RequestPayload)

	require.NoError(t, repo.SetCheckoutURL(ctx, "ORDER-O1-2", "https://pay.example.com/a"))
	require.NoError(t, repo.SetCheckoutURL(ctx, "ORDER-O1-2", "https://pay.example.com/b"))
	got, err = repo.FindByReference(ctx, "ORDER-O1-2")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/a", got.CheckoutURL)

	ok, err := repo.MarkSettled(ctx, "ORDER-O1-2", domain.AttemptStatusSucceeded)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.MarkSettled(ctx, "ORDER-O1-2", domain.AttemptStatusFailed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWebhookEventLog(t *testing.T) {
	ctx := context.Background()
	log := repository.NewGormWebhookEventLog(setupSQLite(t))

	orderID := "O1"
	require.NoError(t, log.Append(ctx, &domain.WebhookEvent{
		OrderID:      &orderID,
		RawPayload:   []byte(`{"responseCode":"00"}`),
		Verification: domain.VerificationVerified,
		Status:       domain.WebhookEventApplied,
		ProcessedAt:  time.Now().UTC(),
	}))
	require.NoError(t, log.Append(ctx, &domain.WebhookEvent{
		RawPayload:   []byte(`not json at all`),
		Verification: domain.VerificationInvalid,
		Status:       domain.WebhookEventRejectedSignature,
		ProcessedAt:  time.Now().UTC(),
	}))

	events, err := log.ListByOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.WebhookEventApplied, events[0].Status)
	assert.NotEmpty(t, events[0].ID)
}

func TestWebhookEventLog_HostileInput(t *testing.T) {
	ctx := context.Background()
	log := repository.NewGormWebhookEventLog(setupSQLite(t))

	orderID := "O1"
	raw := []byte("{\"externalTransactionID\":\"\x00\xff\xfe\"}")
	longID := strings.Repeat("é", 400)
	event := &domain.WebhookEvent{
		OrderID:               &orderID,
		RawPayload:            raw,
		Signature:             strings.Repeat("f", 300) + "\xff",
		Verification:          domain.VerificationInvalid,
		Status:                domain.WebhookEventRejectedSignature,
		ExternalTransactionID: longID + "\x00",
		ResponseCode:          strings.Repeat("9", 50),
		ErrorMessage:          "bad \x00 input",
		ProcessedAt:           time.Now().UTC(),
	}
	require.NoError(t, log.Append(ctx, event))

	events, err := log.ListByOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, raw, got.RawPayload)
	assert.True(t, utf8.ValidString(got.Signature))
	assert.LessOrEqual(t, len(got.ExternalTransactionID), 255)
	assert.True(t, utf8.ValidString(got.ExternalTransactionID))
	assert.True(t, strings.HasPrefix(longID, got.ExternalTransactionID))
	assert.LessOrEqual(t, len(got.ResponseCode), 16)
	assert.Equal(t, "bad  input", got.ErrorMessage)
}

func TestWebhookEventLog_InsertBindsRawBytes(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	log := repository.NewGormWebhookEventLog(gormDB)
	raw := []byte("\x00\xff not json")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "webhook_events"`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), raw, "sig", string(domain.VerificationInvalid),
			string(domain.WebhookEventRejectedSignature), "", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, log.Append(context.Background(), &domain.WebhookEvent{
		RawPayload:   raw,
		Signature:    "sig",
		Verification: domain.VerificationInvalid,
		Status:       domain.WebhookEventRejectedSignature,
		ProcessedAt:  time.Now().UTC(),
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGatewayAuditLog(t *testing.T) {
	audit := repository.NewGormGatewayAuditLog(setupSQLite(t))
	entry := &domain.GatewayCallLog{
		Reference:      "ORDER-O1-1",
		OrderID:        "O1",
		RequestBody:    []byte(`{"amount":1}`),
		ResponseStatus: 502,
		ResponseBody:   []byte("<html>bad gateway</html>"),
		Error:          "status 502",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, audit.Record(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
}

func newContract(number, orderID string) *domain.ServiceContract {
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	return &domain.ServiceContract{
		ID:             number + "-id",
		ContractNumber: number,
		UserID:         "U1",
		OrderID:        orderID,
		ServiceName:    "Basic Plan",
		PriceMinor:     100000,
		Currency:       "ZAR",
		StartDate:      start,
		EndDate:        start.AddDate(0, 24, 0),
		Status:         domain.ContractStatusActive,
		PaymentStatus:  domain.ContractPaymentStatusPaid,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestContractRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormContractRepository(setupSQLite(t))

	next, err := repo.Next(ctx, "CN", 2026)
	require.NoError(t, err)
	assert.Equal(t, "CN-2026-000001", next)

	require.NoError(t, repo.Create(ctx, newContract("CN-2026-000001", "O1")))
	require.NoError(t, repo.Create(ctx, newContract("CN-2025-000041", "O0")))

	next, err = repo.Next(ctx, "CN", 2026)
	require.NoError(t, err)
	assert.Equal(t, "CN-2026-000002", next)

	next, err = repo.Next(ctx, "CN", 2025)
	require.NoError(t, err)
	assert.Equal(t, "CN-2025-000042", next)

	c := newContract("CN-2026-000001", "O2")
	c.ID = "other"
	assert.ErrorIs(t, repo.Create(ctx, c), domain.ErrDuplicateContractNumber)

	c = newContract("CN-2026-000099", "O1")
	c.ID = "other2"
	assert.ErrorIs(t, repo.Create(ctx, c), domain.ErrContractExists)

	got, err := repo.FindByOrderID(ctx, "O1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CN-2026-000001", got.ContractNumber)
	assert.True(t, got.EndDate.Equal(time.Date(2028, 3, 15, 0, 0, 0, 0, time.UTC)))

	none, err := repo.FindByOrderID(ctx, "O-none")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestContractRepository_NextPastSixDigits(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewGormContractRepository(setupSQLite(t))

	require.NoError(t, repo.Create(ctx, newContract("CN-2026-999999", "O1")))
	next, err := repo.Next(ctx, "CN", 2026)
	require.NoError(t, err)
	assert.Equal(t, "CN-2026-1000000", next)

	c := newContract(next, "O2")
	c.ID = "c2"
	require.NoError(t, repo.Create(ctx, c))

	next, err = repo.Next(ctx, "CN", 2026)
	require.NoError(t, err)
	assert.Equal(t, "CN-2026-1000001", next)
}
