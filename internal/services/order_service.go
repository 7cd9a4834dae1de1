package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/manasdevX/ShopEasy-sub001/internal/cache"
	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra"
	"github.com/manasdevX/ShopEasy-sub001/internal/infra/kafka"
	"github.com/manasdevX/ShopEasy-sub001/internal/metrics"
	"github.com/manasdevX/ShopEasy-sub001/internal/payment"
	"github.com/manasdevX/ShopEasy-sub001/internal/repository"
	"github.com/manasdevX/ShopEasy-sub001/internal/sideeffects"
)

var ErrOrderNotFound = fmt.Errorf("%w: order not found", domain.ErrNotFound)

// maxSaveAttempts bounds the reload-and-retry loop on optimistic conflicts.
const maxSaveAttempts = 3

// Dispatcher runs committed outbox tasks in the background.
type Dispatcher interface {
	Dispatch(tasks []domain.OutboxTask)
}

type OrderService struct {
	repo     repository.OrderRepository
	outbox   repository.OutboxRepository
	verifier *payment.Verifier
	gateway  infra.GatewayClientInterface
	runner   Dispatcher

	store       cache.Store
	invalidator *cache.Invalidator
	cacheTTL    time.Duration

	events kafka.EventPublisher
	now    func() time.Time
}

func NewOrderService(r repository.OrderRepository, outbox repository.OutboxRepository, v *payment.Verifier, gw infra.GatewayClientInterface, d Dispatcher) *OrderService {
	return &OrderService{
		repo:     r,
		outbox:   outbox,
		verifier: v,
		gateway:  gw,
		runner:   d,
		cacheTTL: cache.DefaultTTL,
		events:   kafka.NopPublisher{},
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// SetCache enables the read-through cache and its invalidation.
func (s *OrderService) SetCache(store cache.Store, inv *cache.Invalidator, ttl time.Duration) {
	s.store = store
	s.invalidator = inv
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

func (s *OrderService) SetEventPublisher(p kafka.EventPublisher) {
	s.events = p
}

// CreatePaymentOrder opens a payment on the gateway for the given amount.
func (s *OrderService) CreatePaymentOrder(ctx context.Context, amount decimal.Decimal) (*infra.GatewayOrder, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	gwOrder, err := s.gateway.CreateOrder(ctx, amount)
	if err != nil {
		slog.Error("gateway order creation failed", "amount", amount.String(), "err", err)
		if !errors.Is(err, domain.ErrGateway) {
			err = fmt.Errorf("%w: %w", domain.ErrGateway, err)
		}
		return nil, err
	}
	return gwOrder, nil
}

func (s *OrderService) CreateCODOrder(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	order, err := BuildOrder(in, nil, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.persistNew(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// VerifyPaymentAndCreate settles an online payment. The returned bool is
// false when the payment id was already settled and the existing order is
// returned instead of a new one.
func (s *OrderService) VerifyPaymentAndCreate(ctx context.Context, conf payment.Confirmation, in CheckoutInput) (*domain.Order, bool, error) {
	if err := in.Validate(); err != nil {
		return nil, false, err
	}
	if err := s.verifier.Verify(conf); err != nil {
		if errors.Is(err, domain.ErrSignatureMismatch) {
			metrics.SignatureFailures.Inc()
			slog.Warn("payment signature rejected", "gateway_order_id", conf.GatewayOrderID, "customer_id", in.CustomerID)
		}
		return nil, false, err
	}

	existing, err := s.repo.FindByPaymentID(ctx, conf.GatewayPaymentID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		o, err := s.replay(existing, in.CustomerID)
		return o, false, err
	}

	now := s.now()
	paymentID := conf.GatewayPaymentID
	order, err := BuildOrder(in, &domain.PaymentResult{
		GatewayOrderID: conf.GatewayOrderID,
		PaymentID:      &paymentID,
		Status:         "captured",
		UpdateTime:     &now,
	}, now)
	if err != nil {
		return nil, false, err
	}

	err = s.persistNew(ctx, order)
	if errors.Is(err, domain.ErrDuplicatePayment) {
		// lost the race against a concurrent verification of the same payment
		existing, ferr := s.repo.FindByPaymentID(ctx, conf.GatewayPaymentID)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("%w: payment %s reported duplicate but not found", domain.ErrPersistence, paymentID)
		}
		o, err := s.replay(existing, in.CustomerID)
		return o, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}

func (s *OrderService) replay(existing *domain.Order, customerID string) (*domain.Order, error) {
	if existing.CustomerID != customerID {
		slog.Warn("payment id replayed by another customer", "order_id", existing.ID, "customer_id", customerID)
		return nil, fmt.Errorf("%w: payment already settled", domain.ErrConflict)
	}
	metrics.PaymentReplays.Inc()
	slog.Info("payment already settled, returning existing order", "order_id", existing.ID)
	return existing, nil
}

// persistNew writes the order together with its side-effect tasks and hands
// the tasks to the runner once the transaction committed.
func (s *OrderService) persistNew(ctx context.Context, order *domain.Order) error {
	tasks, err := s.creationTasks(order)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, order, tasks); err != nil {
		return err
	}
	metrics.OrdersCreated.WithLabelValues(string(order.PaymentMethod)).Inc()
	slog.Info("order created", "order_id", order.ID, "customer_id", order.CustomerID,
		"payment_method", order.PaymentMethod, "sellers", len(order.SellerIDs()), "total", order.TotalPrice.String())
	s.runner.Dispatch(tasks)
	return nil
}

func (s *OrderService) creationTasks(o *domain.Order) ([]domain.OutboxTask, error) {
	now := s.now()
	event := domain.EventEnvelope{
		Type:    domain.EventOrderCreated,
		OrderID: o.ID,
		Data: domain.OrderCreatedEvent{
			OrderID:       o.ID,
			CustomerID:    o.CustomerID,
			SellerIDs:     o.SellerIDs(),
			PaymentMethod: o.PaymentMethod,
			IsPaid:        o.IsPaid,
			TotalPrice:    o.TotalPrice,
			CreatedAt:     o.CreatedAt,
		},
		At: now,
	}
	planned := []struct {
		kind    domain.TaskKind
		payload any
	}{
		{domain.TaskInvalidateCache, domain.InvalidationFor(o)},
		{domain.TaskNotifySellers, nil},
		{domain.TaskSendConfirmation, nil},
		{domain.TaskPublishEvent, event},
	}
	tasks := make([]domain.OutboxTask, 0, len(planned))
	for _, p := range planned {
		t, err := sideeffects.NewTask(p.kind, o.ID, p.payload, now)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// GetOrder reads through the cache. Sellers receive only their own items.
func (s *OrderService) GetOrder(ctx context.Context, caller domain.Caller, id string) (*domain.Order, error) {
	o, err := s.loadCached(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanRead(o) {
		return nil, fmt.Errorf("%w: order %s", domain.ErrUnauthorized, id)
	}
	if caller.Role == domain.RoleSeller {
		filtered := o.ForSeller(caller.ID)
		return &filtered, nil
	}
	return o, nil
}

func (s *OrderService) loadCached(ctx context.Context, id string) (*domain.Order, error) {
	key := cache.OrderKey(id)
	if s.store != nil {
		var cached domain.Order
		err := cache.GetJSON(ctx, s.store, key, &cached)
		switch {
		case err == nil && cached.Version >= s.versionFloor(ctx, id):
			return &cached, nil
		case err == nil:
			// written by a read that raced a mutation
			slog.Debug("stale order in cache, dropping", "order_id", id, "version", cached.Version)
			if err := s.store.Delete(ctx, key); err != nil {
				slog.Warn("cache delete failed", "key", key, "err", err)
			}
		case !errors.Is(err, cache.ErrMiss):
			slog.Warn("cache read failed, falling back to store", "key", key, "err", err)
		}
	}

	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if s.store != nil && o.Version >= s.versionFloor(ctx, id) {
		s.cachePut(ctx, key, o)
	}
	return o, nil
}

// versionFloor returns the newest committed version recorded for the order,
// or 0 when none is known.
func (s *OrderService) versionFloor(ctx context.Context, id string) uint64 {
	b, err := s.store.Get(ctx, cache.OrderVersionKey(id))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("cache read failed", "key", cache.OrderVersionKey(id), "err", err)
		}
		return 0
	}
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (s *OrderService) ListMyOrders(ctx context.Context, caller domain.Caller, page repository.Page) ([]domain.Order, error) {
	page = page.Normalize()
	key := cache.CustomerOrdersKey(caller.ID, pageQuery(page))
	if orders, ok := s.cachedList(ctx, key); ok {
		return orders, nil
	}
	orders, err := s.repo.FindByCustomer(ctx, caller.ID, page)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	s.cachePut(ctx, key, orders)
	return orders, nil
}

func (s *OrderService) ListSellerOrders(ctx context.Context, caller domain.Caller, page repository.Page) ([]domain.Order, error) {
	if caller.Role != domain.RoleSeller {
		return nil, fmt.Errorf("%w: seller orders are only visible to sellers", domain.ErrUnauthorized)
	}
	page = page.Normalize()
	key := cache.SellerOrdersKey(caller.ID, pageQuery(page))
	if orders, ok := s.cachedList(ctx, key); ok {
		return orders, nil
	}
	found, err := s.repo.FindBySeller(ctx, caller.ID, page)
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(found))
	for i := range found {
		orders = append(orders, found[i].ForSeller(caller.ID))
	}
	s.cachePut(ctx, key, orders)
	return orders, nil
}

func (s *OrderService) cachedList(ctx context.Context, key string) ([]domain.Order, bool) {
	if s.store == nil {
		return nil, false
	}
	var orders []domain.Order
	if err := cache.GetJSON(ctx, s.store, key, &orders); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("cache read failed, falling back to store", "key", key, "err", err)
		}
		return nil, false
	}
	return orders, true
}

func (s *OrderService) cachePut(ctx context.Context, key string, v any) {
	if s.store == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.store, key, v, s.cacheTTL); err != nil {
		slog.Warn("cache write failed", "key", key, "err", err)
	}
}

func pageQuery(p repository.Page) string {
	return fmt.Sprintf("limit=%d&offset=%d", p.Limit, p.Offset)
}

// StatusUpdate targets one product's items when ProductID is set, otherwise
// every item the seller owns in the order.
type StatusUpdate struct {
	Status    string
	ProductID string
}

// UpdateStatus moves the calling seller's items and recomputes the aggregate.
func (s *OrderService) UpdateStatus(ctx context.Context, caller domain.Caller, orderID string, upd StatusUpdate) (*domain.Order, error) {
	if caller.Role != domain.RoleSeller {
		return nil, fmt.Errorf("%w: only sellers update item status", domain.ErrUnauthorized)
	}
	to, err := domain.ParseStatus(upd.Status)
	if err != nil {
		return nil, err
	}

	o, changes, err := s.mutate(ctx, orderID, func(o *domain.Order, now time.Time) ([]domain.ItemChange, error) {
		return o.TransitionItems(caller.ID, upd.ProductID, to, now)
	})
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(to)).Add(float64(len(changes)))
	slog.Info("item status updated", "order_id", o.ID, "seller_id", caller.ID, "items", len(changes),
		"item_status", to, "order_status", o.Status)
	s.afterMutation(ctx, o, caller.ID, changes)

	filtered := o.ForSeller(caller.ID)
	return &filtered, nil
}

// CancelOrder is the owning customer's explicit cancellation while nothing
// has shipped.
func (s *OrderService) CancelOrder(ctx context.Context, caller domain.Caller, orderID string) (*domain.Order, error) {
	o, changes, err := s.mutate(ctx, orderID, func(o *domain.Order, _ time.Time) ([]domain.ItemChange, error) {
		if caller.Role != domain.RoleAdmin && (caller.Role != domain.RoleCustomer || o.CustomerID != caller.ID) {
			return nil, fmt.Errorf("%w: order %s", domain.ErrUnauthorized, orderID)
		}
		return o.Cancel()
	})
	if err != nil {
		return nil, err
	}
	slog.Info("order cancelled", "order_id", o.ID, "by", caller.ID)
	s.afterMutation(ctx, o, "", changes)
	return o, nil
}

func (s *OrderService) RefundOrder(ctx context.Context, caller domain.Caller, orderID string) (*domain.Order, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: refunds are an admin action", domain.ErrUnauthorized)
	}
	o, _, err := s.mutate(ctx, orderID, func(o *domain.Order, now time.Time) ([]domain.ItemChange, error) {
		return nil, o.MarkRefunded(now)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("order refunded", "order_id", o.ID, "status", o.Status)
	s.afterMutation(ctx, o, "", nil)
	return o, nil
}

// mutate loads the order from the store, applies fn and saves the result
// guarded by the version read, retrying from a fresh read on conflict.
func (s *OrderService) mutate(ctx context.Context, orderID string, fn func(*domain.Order, time.Time) ([]domain.ItemChange, error)) (*domain.Order, []domain.ItemChange, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		o, err := s.repo.FindByID(ctx, orderID)
		if err != nil {
			return nil, nil, err
		}
		if o == nil {
			return nil, nil, ErrOrderNotFound
		}

		version := o.Version
		changes, err := fn(o, s.now())
		if err != nil {
			return nil, nil, err
		}
		err = s.repo.SaveTransition(ctx, o, changes, version)
		if err == nil {
			return o, changes, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, nil, err
		}
		metrics.StoreConflicts.Inc()
		slog.Warn("order changed concurrently, retrying", "order_id", orderID, "attempt", attempt)
		lastErr = err
	}
	return nil, nil, lastErr
}

// afterMutation drops the order's cache entries before the caller gets its
// response and queues the status event. A failed invalidation is handed to
// the outbox so it is retried.
func (s *OrderService) afterMutation(ctx context.Context, o *domain.Order, sellerID string, changes []domain.ItemChange) {
	now := s.now()
	var tasks []domain.OutboxTask

	if s.store != nil {
		// outlives any copy cached by a read that started before the commit
		floorKey := cache.OrderVersionKey(o.ID)
		if err := s.store.Set(ctx, floorKey, []byte(strconv.FormatUint(o.Version, 10)), s.cacheTTL); err != nil {
			slog.Warn("cache write failed", "key", floorKey, "err", err)
		}
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateOrder(ctx, o.ID, o.CustomerID, o.SellerIDs()); err != nil {
			slog.Error("cache invalidation failed, queued for retry", "order_id", o.ID, "err", err)
			req := domain.CacheInvalidation{CustomerID: o.CustomerID, SellerIDs: o.SellerIDs()}
			if t, err := sideeffects.NewTask(domain.TaskInvalidateCache, o.ID, req, now); err == nil {
				tasks = append(tasks, t)
			}
		}
	}

	evt := domain.OrderStatusChangedEvent{OrderID: o.ID, SellerID: sellerID, Status: o.Status, ChangedAt: now}
	for _, ch := range changes {
		evt.ItemIDs = append(evt.ItemIDs, ch.ItemID)
		evt.ItemStatus = ch.To
	}
	envelope := domain.EventEnvelope{Type: domain.EventOrderStatusChanged, OrderID: o.ID, Data: evt, At: now}
	if t, err := sideeffects.NewTask(domain.TaskPublishEvent, o.ID, envelope, now); err == nil {
		tasks = append(tasks, t)
	} else {
		slog.Error("building status event failed", "order_id", o.ID, "err", err)
	}

	if err := s.outbox.Enqueue(context.WithoutCancel(ctx), tasks); err != nil {
		slog.Error("enqueue side effects failed, needs manual reconciliation", "order_id", o.ID, "err", err)
		return
	}
	s.runner.Dispatch(tasks)
}

// HandleCacheInvalidation executes a cache.invalidate task.
func (s *OrderService) HandleCacheInvalidation(ctx context.Context, task domain.OutboxTask) error {
	if s.invalidator == nil {
		return nil
	}
	var req domain.CacheInvalidation
	if err := json.Unmarshal(task.Payload, &req); err != nil {
		return fmt.Errorf("decode invalidation payload: %w", err)
	}
	return s.invalidator.Apply(ctx, task.OrderID, req)
}

// HandlePublishEvent forwards the stored envelope to the event stream.
func (s *OrderService) HandlePublishEvent(ctx context.Context, task domain.OutboxTask) error {
	if len(task.Payload) == 0 {
		return fmt.Errorf("event task %d has no payload", task.ID)
	}
	return s.events.PublishEvent(ctx, task.OrderID, task.Payload)
}
