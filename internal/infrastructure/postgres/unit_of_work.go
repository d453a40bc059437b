package postgres

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flashteams/backend/internal/domain/entity"
)

type entryState int

const (
	stateUnchanged entryState = iota
	stateAdded
	stateModified
	stateDeleted
)

type entry struct {
	ptr      any
	snapshot any
	state    entryState
}

// UnitOfWork tracks the entities a single request loaded or staged and
// flushes them together. It is not meant to outlive the request.
type UnitOfWork struct {
	db *gorm.DB

	mu      sync.Mutex
	entries []*entry
	byKey   map[string]*entry
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db, byKey: make(map[string]*entry)}
}

func (u *UnitOfWork) DB() *gorm.DB { return u.db }

func identity(ptr any) (string, bool) {
	e, ok := ptr.(entity.Entity)
	if !ok || e.Key() == uuid.Nil {
		return "", false
	}
	return fmt.Sprintf("%T/%s", ptr, e.Key()), true
}

func snapshotOf(ptr any) any {
	return reflect.ValueOf(ptr).Elem().Interface()
}

func (u *UnitOfWork) find(ptr any) *entry {
	if k, ok := identity(ptr); ok {
		if en, ok := u.byKey[k]; ok {
			return en
		}
	}
	for _, en := range u.entries {
		if en.ptr == ptr {
			return en
		}
	}
	return nil
}

func (u *UnitOfWork) track(ptr any, state entryState) *entry {
	en := &entry{ptr: ptr, snapshot: snapshotOf(ptr), state: state}
	u.entries = append(u.entries, en)
	if k, ok := identity(ptr); ok {
		u.byKey[k] = en
	}
	return en
}

// attach returns the instance already tracked under e's identity, or starts
// tracking e as unchanged.
func attach[T entity.Entity](u *UnitOfWork, e *T) *T {
	u.mu.Lock()
	defer u.mu.Unlock()
	if en := u.find(e); en != nil {
		if tracked, ok := en.ptr.(*T); ok {
			return tracked
		}
	}
	u.track(e, stateUnchanged)
	return e
}

func (u *UnitOfWork) add(ptr any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if en := u.find(ptr); en != nil {
		en.state = stateAdded
		return
	}
	u.track(ptr, stateAdded)
}

func (u *UnitOfWork) markModified(ptr any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	en := u.find(ptr)
	if en == nil {
		u.track(ptr, stateModified)
		return
	}
	if en.state == stateUnchanged {
		en.state = stateModified
	}
}

func (u *UnitOfWork) markDeleted(ptr any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	en := u.find(ptr)
	if en == nil {
		u.track(ptr, stateDeleted)
		return
	}
	if en.state == stateAdded {
		// never persisted, forgetting it is enough
		u.detach(en)
		return
	}
	en.state = stateDeleted
}

func (u *UnitOfWork) detach(target *entry) {
	kept := u.entries[:0]
	for _, en := range u.entries {
		if en != target {
			kept = append(kept, en)
		}
	}
	u.entries = kept
	if k, ok := identity(target.ptr); ok && u.byKey[k] == target {
		delete(u.byKey, k)
	}
}

// Tracked reports how many entities are currently attached.
func (u *UnitOfWork) Tracked() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.entries)
}

// SaveChanges persists every staged insert, modification and deletion in
// one transaction. Unchanged entities are compared against the snapshot
// taken when they were attached, so in-place edits are picked up too.
// On failure nothing is committed and the tracked state is left as is.
func (u *UnitOfWork) SaveChanges(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, en := range u.entries {
			var res *gorm.DB
			switch en.state {
			case stateAdded:
				res = tx.Omit(clause.Associations).Create(en.ptr)
			case stateModified:
				res = tx.Omit(clause.Associations).Save(en.ptr)
			case stateDeleted:
				res = tx.Delete(en.ptr)
			default:
				if reflect.DeepEqual(en.snapshot, snapshotOf(en.ptr)) {
					continue
				}
				res = tx.Omit(clause.Associations).Save(en.ptr)
			}
			if res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	kept := u.entries[:0]
	u.byKey = make(map[string]*entry, len(u.entries))
	for _, en := range u.entries {
		if en.state == stateDeleted {
			continue
		}
		en.state = stateUnchanged
		en.snapshot = snapshotOf(en.ptr)
		kept = append(kept, en)
		if k, ok := identity(en.ptr); ok {
			u.byKey[k] = en
		}
	}
	u.entries = kept
	return nil
}
