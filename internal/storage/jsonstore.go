// internal/storage/jsonstore.go
//
// 提供 JSON 快照 (Snapshot) 的檔案型後端。
// 採「原子寫入」策略 (atomic write)：先寫入 .tmp 檔並 fsync，再以 rename() 取代原檔，
// 寫入中途失敗時原檔不會損壞。
package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileStore 將快照保存為單一 JSON 檔案。
type FileStore struct {
	path string
}

// NewFileStore 建立以 path 為目標檔案的 FileStore。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name implements Store.
func (s *FileStore) Name() string { return "json_snapshot" }

// Path 回傳快照檔案路徑。
func (s *FileStore) Path() string { return s.path }

// Load 讀取 JSON 快照；檔案不存在時回傳 ErrNoSnapshot。
func (s *FileStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "read snapshot %s", s.path)
	}
	return decode(data)
}

// Save 將 Snapshot 序列化為 JSON 檔案，並採原子方式寫入。
// 流程：
//  1. 設定 Meta 與當前時間戳。
//  2. 寫入 path+".tmp" 暫存檔並 fsync。
//  3. 使用 os.Rename() 取代正式檔案。
func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(ErrPersistenceWrite, err.Error())
	}
	stamp(&snap, s.Name())
	data, err := encode(snap, true)
	if err != nil {
		return errors.Wrapf(ErrPersistenceWrite, "encode: %v", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return errors.Wrapf(ErrPersistenceWrite, "%s: %v", s.path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"

	// 建立暫存檔案
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	// 原子替換
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	// rename 須待目錄項目落盤才算持久
	return syncDir(filepath.Dir(path))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}
