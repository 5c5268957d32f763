package clmm

import (
	"github.com/oraicore/clmm/internal/errkind"
	"github.com/oraicore/clmm/internal/store"
)

// NeverExpires marks an approval/operator grant with no expiry (§3.6).
const NeverExpires uint64 = 0

func expired(expires uint64, nowMs uint64) bool {
	return expires != NeverExpires && expires <= nowMs
}

// canSend implements §4.9's transfer authorization: caller is the
// owner, OR holds a non-expired position approval, OR is a non-expired
// operator of the owner.
func canSend(tx *store.Tx, owner, caller Address, pos Position, nowMs uint64) bool {
	if caller == owner {
		return true
	}
	for _, a := range pos.Approvals {
		if a.Spender == caller && !expired(a.Expires, nowMs) {
			return true
		}
	}
	if expires, ok := loadOperatorExpiry(tx, owner, caller); ok && !expired(expires, nowMs) {
		return true
	}
	return false
}

func findByTokenID(tx *store.Tx, tokenID uint64) (Address, uint32, Position, error) {
	entry, ok := loadTokenIDIndex(tx, tokenID)
	if !ok {
		return Address{}, 0, Position{}, errkind.New(errkind.PositionNotFound)
	}
	pos, ok := loadPosition(tx, entry.Owner, entry.Index)
	if !ok {
		return Address{}, 0, Position{}, errkind.New(errkind.PositionNotFound)
	}
	return entry.Owner, entry.Index, pos, nil
}

// TransferNFT implements §6.1's transfer_nft / §4.9 "transfer": caller
// must be authorized (canSend); approvals are cleared on the moved
// position per §9's documented resolution of the open question about
// approval-list normalization.
func TransferNFT(tx *store.Tx, caller, recipient Address, tokenID uint64, nowMs uint64) error {
	owner, index, pos, err := findByTokenID(tx, tokenID)
	if err != nil {
		return err
	}
	if !canSend(tx, owner, caller, pos, nowMs) {
		return errkind.New(errkind.Unauthorized)
	}

	pos.Approvals = nil

	newIndex := positionsLength(tx, recipient)
	if err := savePosition(tx, recipient, newIndex, pos); err != nil {
		return err
	}
	setPositionsLength(tx, recipient, newIndex+1)
	if err := saveTokenIDIndex(tx, tokenID, tokenIDIndexEntry{Owner: recipient, Index: newIndex}); err != nil {
		return err
	}

	return compactAfterMove(tx, owner, index)
}

// SendNFT implements §6.1's send_nft: identical state transition to
// TransferNFT; the `msg` payload is a collaborator-level concern (the
// core has no notion of a contract receiver hook) and is accepted only
// to keep the call-site symmetric with transfer_nft.
func SendNFT(tx *store.Tx, caller, recipientContract Address, tokenID uint64, _ []byte, nowMs uint64) error {
	return TransferNFT(tx, caller, recipientContract, tokenID, nowMs)
}

// compactAfterMove removes the position left behind at (owner, index)
// by moving the owner's last position into the hole, mirroring
// compactPositionOnRemove but without touching num_tokens (the position
// still exists, just under a new owner).
func compactAfterMove(tx *store.Tx, owner Address, index uint32) error {
	length := positionsLength(tx, owner)
	if length == 0 {
		return errkind.New(errkind.PositionNotFound)
	}
	lastIndex := length - 1
	if index != lastIndex {
		last, ok := loadPosition(tx, owner, lastIndex)
		if !ok {
			return errkind.New(errkind.PositionNotFound)
		}
		if err := savePosition(tx, owner, index, last); err != nil {
			return err
		}
		if err := saveTokenIDIndex(tx, last.TokenID, tokenIDIndexEntry{Owner: owner, Index: index}); err != nil {
			return err
		}
	}
	deletePosition(tx, owner, lastIndex)
	setPositionsLength(tx, owner, lastIndex)
	return nil
}

// Approve implements §6.1's approve: replaces any existing entry for
// the same spender (§4.9).
func Approve(tx *store.Tx, caller, spender Address, tokenID uint64, expires uint64, nowMs uint64) error {
	if expired(expires, nowMs) {
		return errkind.New(errkind.Expired)
	}
	owner, index, pos, err := findByTokenID(tx, tokenID)
	if err != nil {
		return err
	}
	if !canSend(tx, owner, caller, pos, nowMs) {
		return errkind.New(errkind.Unauthorized)
	}

	replaced := false
	for i := range pos.Approvals {
		if pos.Approvals[i].Spender == spender {
			pos.Approvals[i].Expires = expires
			replaced = true
			break
		}
	}
	if !replaced {
		pos.Approvals = append(pos.Approvals, Approval{Spender: spender, Expires: expires})
	}
	return savePosition(tx, owner, index, pos)
}

// Revoke implements §6.1's revoke.
func Revoke(tx *store.Tx, caller, spender Address, tokenID uint64, nowMs uint64) error {
	owner, index, pos, err := findByTokenID(tx, tokenID)
	if err != nil {
		return err
	}
	if !canSend(tx, owner, caller, pos, nowMs) {
		return errkind.New(errkind.Unauthorized)
	}
	kept := pos.Approvals[:0]
	for _, a := range pos.Approvals {
		if a.Spender != spender {
			kept = append(kept, a)
		}
	}
	pos.Approvals = kept
	return savePosition(tx, owner, index, pos)
}

// ApproveAll implements §6.1's approve_all: rejects an already-expired
// expiry (§4.9).
func ApproveAll(tx *store.Tx, owner, operator Address, expires uint64, nowMs uint64) error {
	if expired(expires, nowMs) {
		return errkind.New(errkind.Expired)
	}
	setOperatorExpiry(tx, owner, operator, expires)
	return nil
}

// RevokeAll implements §6.1's revoke_all.
func RevokeAll(tx *store.Tx, owner, operator Address) error {
	deleteOperator(tx, owner, operator)
	return nil
}

// OwnerOf resolves a token_id to its current owning address (a query
// helper backing §6.1's owner_of).
func OwnerOf(tx *store.Tx, tokenID uint64) (Address, error) {
	owner, _, _, err := findByTokenID(tx, tokenID)
	return owner, err
}

// IsOperator reports whether operator currently holds non-expired
// authority over all of owner's positions (backs §6.1's
// approved_for_all).
func IsOperator(tx *store.Tx, owner, operator Address, nowMs uint64) bool {
	expires, ok := loadOperatorExpiry(tx, owner, operator)
	return ok && !expired(expires, nowMs)
}
