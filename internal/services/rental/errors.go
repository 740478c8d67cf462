package rental

import "errors"

var (
	// ErrNotParticipant means the caller is neither borrower nor owner of
	// the transaction.
	ErrNotParticipant = errors.New("user is not a participant in this transaction")
	// ErrInvalidState means the transaction's current status does not
	// permit the attempted operation.
	ErrInvalidState = errors.New("operation not permitted in current transaction status")
	// ErrInsufficientTokens means the borrower's balance does not cover
	// the requested rental at request time.
	ErrInsufficientTokens = errors.New("insufficient tokens")
	// ErrOwnItem means a user tried to borrow their own item.
	ErrOwnItem = errors.New("cannot borrow your own item")
	// ErrOwnerOnly means the operation is restricted to the item owner.
	ErrOwnerOnly = errors.New("only the item owner may perform this operation")
)
