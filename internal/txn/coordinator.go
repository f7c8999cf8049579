// internal/txn/coordinator.go

// Package txn 實作交易協調器 (Transaction Coordinator)。
// 每個變更操作皆在單一寫入鎖內完成「驗證 → 變更 → 持久化」；
// 持久化失敗時還原為變更前的 Ledger，確保記憶體與磁碟狀態一致。
// 查詢操作使用讀鎖，可彼此並行，但不會看到進行中的半套變更。
package txn

import (
	"context"
	"sync"
	"time"

	"finsystem/internal/bank"
	"finsystem/internal/events"
	"finsystem/internal/storage"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Receipt 為成功轉帳的回執。
type Receipt struct {
	ID        string          `json:"id"`
	Sender    string          `json:"sender"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	At        time.Time       `json:"at"`
}

// Coordinator 擁有 Ledger 與 Store 這組共享資源。
// - mu：寫入者獨佔，讀取者之間可並行。
// - ledger：唯一的權威狀態，只在 mu 寫鎖內變更。
type Coordinator struct {
	mu     sync.RWMutex
	ledger *bank.Ledger
	store  storage.Store

	logger         *zap.Logger
	publisher      events.Publisher
	persistTimeout time.Duration
	newID          func() string
}

// Option 設定 Coordinator。
type Option func(*Coordinator)

// WithLogger 設定結構化日誌。
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithPublisher 設定提交後的事件發布器。
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithPersistTimeout 限制單次快照寫入時間；逾時視為寫入失敗並觸發 rollback。
// d <= 0 表示不限制。
func WithPersistTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.persistTimeout = d }
}

// defaultCompensateTimeout 為未設定 persistTimeout 時補償寫入的時限。
const defaultCompensateTimeout = 5 * time.Second

// WithIDGenerator 替換轉帳回執 ID 產生器。
func WithIDGenerator(f func() string) Option {
	return func(c *Coordinator) { c.newID = f }
}

// New 建立 Coordinator；ledger 應為啟動時由 store 載入（或種子）的狀態。
func New(ledger *bank.Ledger, store storage.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		ledger:    ledger,
		store:     store,
		logger:    zap.NewNop(),
		publisher: events.Nop{},
		newID:     func() string { return ulid.Make().String() },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open 從 store 載入 Ledger（無快照時使用預設種子）並建立 Coordinator。
// 快照損毀時回傳 storage.ErrCorruptSnapshot，呼叫端應中止啟動。
func Open(ctx context.Context, store storage.Store, ledgerOpts []bank.Option, opts ...Option) (*Coordinator, error) {
	snap, seeded, err := storage.LoadOrDefault(ctx, store)
	if err != nil {
		return nil, err
	}
	l, err := bank.FromSnapshot(snap, ledgerOpts...)
	if err != nil {
		return nil, err
	}
	c := New(l, store, opts...)
	c.logger.Info("ledger loaded",
		zap.String("store", store.Name()),
		zap.Int("accounts", l.Len()),
		zap.Bool("seeded", seeded),
	)
	return c, nil
}

// CreateAccount 建立帳戶並持久化。
func (c *Coordinator) CreateAccount(ctx context.Context, id, name string, initial decimal.Decimal) (bank.Account, error) {
	var (
		acct bank.Account
		at   time.Time
	)
	err := c.mutate(ctx, "create_account", func(l *bank.Ledger) error {
		var err error
		acct, at, err = l.CreateAccount(id, name, initial)
		return err
	})
	if err != nil {
		c.logger.Warn("create account rejected", zap.String("account_id", id), zap.Error(err))
		return bank.Account{}, err
	}
	c.logger.Info("account created", zap.String("account_id", id), zap.String("initial_balance", initial.String()))
	c.publish(ctx, events.Event{
		Type:      events.TypeAccountCreated,
		AccountID: id,
		Amount:    initial,
		Timestamp: at,
	})
	return acct, nil
}

// Transfer 執行轉帳並持久化；成功時回傳回執。
func (c *Coordinator) Transfer(ctx context.Context, sender, recipient string, amt decimal.Decimal) (Receipt, error) {
	var at time.Time
	err := c.mutate(ctx, "transfer", func(l *bank.Ledger) error {
		var err error
		at, err = l.Transfer(sender, recipient, amt)
		return err
	})
	if err != nil {
		c.logger.Warn("transfer rejected",
			zap.String("sender", sender),
			zap.String("recipient", recipient),
			zap.String("amount", amt.String()),
			zap.Error(err),
		)
		return Receipt{}, err
	}
	r := Receipt{ID: c.newID(), Sender: sender, Recipient: recipient, Amount: amt, At: at}
	c.logger.Info("transfer committed",
		zap.String("receipt_id", r.ID),
		zap.String("sender", sender),
		zap.String("recipient", recipient),
		zap.String("amount", amt.String()),
	)
	c.publish(ctx, events.Event{
		Type:      events.TypeTransferCompleted,
		ID:        r.ID,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amt,
		Timestamp: at,
	})
	return r, nil
}

// GetAccount 以讀鎖取得帳戶的唯讀拷貝。
func (c *Coordinator) GetAccount(_ context.Context, id string) (bank.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.GetAccount(id)
}

// ListAccounts 以讀鎖列出所有帳戶。
func (c *Coordinator) ListAccounts(_ context.Context) []bank.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.ListAccounts()
}

// mutate 為所有變更操作的共用協定：
//  1. 取得寫鎖。
//  2. 保存變更前拷貝後套用 apply；驗證失敗直接回傳（狀態未變）。
//  3. 將變更後完整狀態寫入 store。
//  4. 寫入失敗 → 還原拷貝並回傳 ErrPersistenceWrite。
//     若失敗來自逾時，store 端可能已完成寫入，另以還原後狀態補寫一次。
//  5. 釋放寫鎖；僅在記憶體與磁碟一致後回傳成功。
func (c *Coordinator) mutate(ctx context.Context, op string, apply func(*bank.Ledger) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.ledger.Clone()
	if err := apply(c.ledger); err != nil {
		operationsTotal.WithLabelValues(op, "rejected").Inc()
		return err
	}

	if timedOut, err := c.persist(ctx); err != nil {
		c.ledger.ReplaceWith(prev)
		rollbacksTotal.Inc()
		operationsTotal.WithLabelValues(op, "rolled_back").Inc()
		c.logger.Error("snapshot write failed, rolled back",
			zap.String("operation", op),
			zap.String("store", c.store.Name()),
			zap.Bool("timed_out", timedOut),
			zap.Error(err),
		)
		if timedOut {
			c.compensate(ctx, op)
		}
		if !errors.Is(err, storage.ErrPersistenceWrite) {
			err = errors.Wrap(storage.ErrPersistenceWrite, err.Error())
		}
		return err
	}
	operationsTotal.WithLabelValues(op, "committed").Inc()
	return nil
}

// persist 寫入目前狀態；timedOut 表示失敗時寫入的 ctx 已逾時或取消，
// 此時無法確定 store 端是否已套用該次寫入。
func (c *Coordinator) persist(ctx context.Context) (timedOut bool, err error) {
	if c.persistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.persistTimeout)
		defer cancel()
	}
	start := time.Now()
	err = c.store.Save(ctx, c.ledger.Snapshot())
	persistDuration.WithLabelValues(c.store.Name()).Observe(time.Since(start).Seconds())
	return err != nil && ctx.Err() != nil, err
}

// compensate 以還原後的狀態覆寫 store，撤銷可能已落地的逾時寫入。
// 不受呼叫端取消影響，但有自己的時限；失敗只記錄與計數。
func (c *Coordinator) compensate(ctx context.Context, op string) {
	timeout := c.persistTimeout
	if timeout <= 0 {
		timeout = defaultCompensateTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := c.store.Save(ctx, c.ledger.Snapshot()); err != nil {
		compensationFailures.Inc()
		c.logger.Error("compensating snapshot write failed, store may still hold the rolled-back change",
			zap.String("operation", op),
			zap.String("store", c.store.Name()),
			zap.Error(err),
		)
		return
	}
	c.logger.Warn("compensating snapshot written after timeout",
		zap.String("operation", op),
		zap.String("store", c.store.Name()),
	)
}

// publish 於鎖外發布事件；失敗只記錄，不影響已提交的結果。
func (c *Coordinator) publish(ctx context.Context, e events.Event) {
	if err := c.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		publishErrors.Inc()
		c.logger.Warn("event publish failed", zap.String("event_type", e.Type), zap.Error(err))
	}
}
