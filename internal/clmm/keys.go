package clmm

import "encoding/binary"

// Storage key prefixes, per §6.2's persisted state layout.
var (
	prefixConfig   = []byte("config")
	prefixPool     = []byte("pools/")
	prefixTick     = []byte("ticks/")
	prefixBitmap   = []byte("bitmap/")
	prefixPosition = []byte("positions/")
	prefixPosLen   = []byte("positions_length/")
	prefixTokenID  = []byte("position_keys_by_token_id/")
	prefixOperator = []byte("operators/")

	keyTokenIDCounter = []byte("token_id")
	keyNumTokens      = []byte("num_tokens")
)

func poolStoreKey(key PoolKey) []byte {
	return append(append([]byte{}, prefixPool...), key.Bytes()...)
}

func tickStoreKey(key PoolKey, index int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(uint32(index)^0x8000_0000)) // sortable signed encoding
	return append(append(append([]byte{}, prefixTick...), key.Bytes()...), buf...)
}

func bitmapStoreKey(key PoolKey, chunk int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(chunk)^0x8000_0000_0000_0000)
	return append(append(append([]byte{}, prefixBitmap...), key.Bytes()...), buf...)
}

func positionStoreKey(owner Address, index uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, index)
	return append(append(append([]byte{}, prefixPosition...), owner[:]...), buf...)
}

func positionLenStoreKey(owner Address) []byte {
	return append(append([]byte{}, prefixPosLen...), owner[:]...)
}

func tokenIDStoreKey(tokenID uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, tokenID)
	return append(append([]byte{}, prefixTokenID...), buf...)
}

func operatorStoreKey(owner, operator Address) []byte {
	return append(append(append([]byte{}, prefixOperator...), owner[:]...), operator[:]...)
}
