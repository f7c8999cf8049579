// internal/storage/store.go
//
// Store 抽象出「整份快照覆寫」的持久化介面。
// 每次 Save 都寫入完整狀態（非差異），Load 只需讀回單一快照，不需重播日誌。
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoSnapshot 代表尚未保存任何快照（首次啟動）。
	ErrNoSnapshot = errors.New("no snapshot stored")

	// ErrCorruptSnapshot 代表已存在的快照無法解析或內容不合法。
	// 啟動時遇到此錯誤屬致命錯誤，不可默默以預設資料取代。
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrPersistenceWrite 代表寫入耐久儲存失敗（磁碟已滿、權限不足、連線中斷等）。
	ErrPersistenceWrite = errors.New("persistence write failed")
)

// Store 為快照儲存後端。
type Store interface {
	// Load 讀回最近一次保存的快照；尚無快照時回傳 ErrNoSnapshot。
	Load(ctx context.Context) (Snapshot, error)
	// Save 以 snap 覆寫既有快照；失敗時回傳包裝 ErrPersistenceWrite 的錯誤。
	Save(ctx context.Context, snap Snapshot) error
	// Name 回傳後端名稱，用於日誌與 Meta.Storage。
	Name() string
}

// LoadOrDefault 從 store 載入快照並驗證。
// 若 store 中沒有快照，回傳 DefaultSnapshot() 且 seeded 為 true；此時不會寫入任何資料。
func LoadOrDefault(ctx context.Context, s Store) (snap Snapshot, seeded bool, err error) {
	snap, err = s.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		return DefaultSnapshot(), true, nil
	case err != nil:
		return Snapshot{}, false, err
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, false, err
	}
	return snap, false, nil
}

var nowFunc = time.Now

// stamp 設定 Meta 欄位，所有後端於 Save 前呼叫。
func stamp(snap *Snapshot, backend string) {
	snap.Meta.Storage = backend
	snap.Meta.Version = SchemaVersion
	snap.Meta.Timestamp = nowFunc().UTC()
}
