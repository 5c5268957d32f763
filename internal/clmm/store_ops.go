package clmm

import (
	"encoding/binary"

	"github.com/oraicore/clmm/internal/bitmap"
	"github.com/oraicore/clmm/internal/errkind"
	"github.com/oraicore/clmm/internal/store"
	"github.com/oraicore/clmm/internal/tickmath"
)

// bitmapOffset shifts tick positions into bitmap.PositionOf's
// non-negative domain (§3.3's position_of uses `index + MAX_TICK`).
const bitmapOffset = tickmath.MaxTick

func loadPool(tx *store.Tx, key PoolKey) (Pool, error) {
	raw, ok := tx.Get(poolStoreKey(key))
	if !ok {
		return Pool{}, errkind.New(errkind.InvalidPoolKey)
	}
	var p Pool
	if err := decode(raw, &p); err != nil {
		return Pool{}, errkind.Wrap(errkind.InvalidPoolKey, err)
	}
	return p, nil
}

func savePool(tx *store.Tx, p Pool) error {
	raw, err := encode(p)
	if err != nil {
		return err
	}
	tx.Set(poolStoreKey(p.Key), raw)
	return nil
}

func poolExists(tx *store.Tx, key PoolKey) bool {
	_, ok := tx.Get(poolStoreKey(key))
	return ok
}

func loadTick(tx *store.Tx, key PoolKey, index int32) (Tick, bool) {
	raw, ok := tx.Get(tickStoreKey(key, index))
	if !ok {
		return Tick{}, false
	}
	var t Tick
	if err := decode(raw, &t); err != nil {
		return Tick{}, false
	}
	return t, true
}

func saveTick(tx *store.Tx, key PoolKey, t Tick) error {
	raw, err := encode(t)
	if err != nil {
		return err
	}
	tx.Set(tickStoreKey(key, t.Index), raw)
	return nil
}

func deleteTick(tx *store.Tx, key PoolKey, index int32) {
	tx.Delete(tickStoreKey(key, index))
}

// flipBitmap toggles the bit for `index` and persists the owning chunk,
// failing with TickReInitialize if the bit doesn't match the expected
// prior state (§4.4 `flip`).
func flipBitmap(tx *store.Tx, key PoolKey, index int32, spacing uint16, expectSet bool) error {
	chunk, bit := bitmap.PositionOf(index, spacing, bitmapOffset)
	m := loadBitmapChunk(tx, key, chunk)
	wasSet := m.IsSet(chunk, bit)
	if wasSet != expectSet {
		return errkind.New(errkind.TickReInitialize)
	}
	m.Flip(chunk, bit)
	saveBitmapChunk(tx, key, chunk, m)
	return nil
}

func loadBitmapChunk(tx *store.Tx, key PoolKey, chunk int64) *bitmap.Map {
	m := bitmap.New()
	raw, ok := tx.Get(bitmapStoreKey(key, chunk))
	if !ok || len(raw) != 8 {
		return m
	}
	word := binary.LittleEndian.Uint64(raw)
	for b := uint8(0); b < bitmap.WordBits; b++ {
		if word&(1<<b) != 0 {
			m.Flip(chunk, b)
		}
	}
	return m
}

func saveBitmapChunk(tx *store.Tx, key PoolKey, chunk int64, m *bitmap.Map) {
	var word uint64
	for b := uint8(0); b < bitmap.WordBits; b++ {
		if m.IsSet(chunk, b) {
			word |= 1 << b
		}
	}
	if word == 0 {
		tx.Delete(bitmapStoreKey(key, chunk))
		return
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, word)
	tx.Set(bitmapStoreKey(key, chunk), buf)
}

func isTickInitialized(tx *store.Tx, key PoolKey, index int32, spacing uint16) bool {
	chunk, bit := bitmap.PositionOf(index, spacing, bitmapOffset)
	return loadBitmapChunk(tx, key, chunk).IsSet(chunk, bit)
}

func nextInitializedTick(tx *store.Tx, key PoolKey, current int32, spacing uint16) (int32, bool) {
	return scanBitmap(tx, key, current, spacing, true)
}

func prevInitializedTick(tx *store.Tx, key PoolKey, current int32, spacing uint16) (int32, bool) {
	return scanBitmap(tx, key, current, spacing, false)
}

func scanBitmap(tx *store.Tx, key PoolKey, current int32, spacing uint16, forward bool) (int32, bool) {
	chunk, _ := bitmap.PositionOf(current, spacing, bitmapOffset)
	m := loadBitmapChunk(tx, key, chunk)
	// Also pull in the neighboring chunks the search window may reach.
	span := int64(bitmap.TickSearchRange)/bitmap.WordBits + 1
	for d := int64(1); d <= span; d++ {
		mergeChunk(tx, key, chunk+d, m)
		mergeChunk(tx, key, chunk-d, m)
	}
	if forward {
		return m.NextInitialized(current, spacing, bitmapOffset)
	}
	return m.PrevInitialized(current, spacing, bitmapOffset)
}

func mergeChunk(tx *store.Tx, key PoolKey, chunk int64, into *bitmap.Map) {
	other := loadBitmapChunk(tx, key, chunk)
	for b := uint8(0); b < bitmap.WordBits; b++ {
		if other.IsSet(chunk, b) && !into.IsSet(chunk, b) {
			into.Flip(chunk, b)
		}
	}
}

func loadPosition(tx *store.Tx, owner Address, index uint32) (Position, bool) {
	raw, ok := tx.Get(positionStoreKey(owner, index))
	if !ok {
		return Position{}, false
	}
	var p Position
	if err := decode(raw, &p); err != nil {
		return Position{}, false
	}
	return p, true
}

func savePosition(tx *store.Tx, owner Address, index uint32, p Position) error {
	raw, err := encode(p)
	if err != nil {
		return err
	}
	tx.Set(positionStoreKey(owner, index), raw)
	return nil
}

func deletePosition(tx *store.Tx, owner Address, index uint32) {
	tx.Delete(positionStoreKey(owner, index))
}

func positionsLength(tx *store.Tx, owner Address) uint32 {
	raw, ok := tx.Get(positionLenStoreKey(owner))
	if !ok || len(raw) != 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(raw)
}

func setPositionsLength(tx *store.Tx, owner Address, n uint32) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, n)
	tx.Set(positionLenStoreKey(owner), buf)
}

// tokenIDIndexEntry is the `position_keys_by_token_id` value (§6.2).
type tokenIDIndexEntry struct {
	Owner Address
	Index uint32 `bin:"le"`
}

func loadTokenIDIndex(tx *store.Tx, tokenID uint64) (tokenIDIndexEntry, bool) {
	raw, ok := tx.Get(tokenIDStoreKey(tokenID))
	if !ok {
		return tokenIDIndexEntry{}, false
	}
	var e tokenIDIndexEntry
	if err := decode(raw, &e); err != nil {
		return tokenIDIndexEntry{}, false
	}
	return e, true
}

func saveTokenIDIndex(tx *store.Tx, tokenID uint64, e tokenIDIndexEntry) error {
	raw, err := encode(e)
	if err != nil {
		return err
	}
	tx.Set(tokenIDStoreKey(tokenID), raw)
	return nil
}

func deleteTokenIDIndex(tx *store.Tx, tokenID uint64) {
	tx.Delete(tokenIDStoreKey(tokenID))
}

func nextTokenID(tx *store.Tx) uint64 {
	raw, ok := tx.Get(keyTokenIDCounter)
	var cur uint64
	if ok && len(raw) == 8 {
		cur = binary.LittleEndian.Uint64(raw)
	}
	cur++
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, cur)
	tx.Set(keyTokenIDCounter, buf)
	return cur
}

func numTokens(tx *store.Tx) uint64 {
	raw, ok := tx.Get(keyNumTokens)
	if !ok || len(raw) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(raw)
}

func setNumTokens(tx *store.Tx, n uint64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, n)
	tx.Set(keyNumTokens, buf)
}

func loadOperatorExpiry(tx *store.Tx, owner, operator Address) (uint64, bool) {
	raw, ok := tx.Get(operatorStoreKey(owner, operator))
	if !ok || len(raw) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(raw), true
}

func setOperatorExpiry(tx *store.Tx, owner, operator Address, expires uint64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, expires)
	tx.Set(operatorStoreKey(owner, operator), buf)
}

func deleteOperator(tx *store.Tx, owner, operator Address) {
	tx.Delete(operatorStoreKey(owner, operator))
}
