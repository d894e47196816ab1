package wallet

import "errors"

var (
	// ErrReadOnly is reported when a signing operation is attempted on a
	// wallet constructed without a signing credential.
	ErrReadOnly = errors.New("no signing credential configured (read-only mode)")

	// ErrInvalidAddress is reported when a recipient address does not parse
	// for the wallet's chain family. Validation happens before any network I/O.
	ErrInvalidAddress = errors.New("invalid recipient address")

	// ErrInvalidAmount is reported for zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("transfer amount must be greater than zero")

	// ErrUnsupportedAsset is reported when a backend does not support the
	// requested asset.
	ErrUnsupportedAsset = errors.New("unsupported asset")
)
