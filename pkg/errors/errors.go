package errors

import "errors"

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrUsernameExists          = errors.New("username already exists")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInternal                = errors.New("internal error")
	ErrEscrowNotFound          = errors.New("escrow not found")
	ErrNotParty                = errors.New("user is not a party to this escrow")
	ErrInvalidTransition       = errors.New("action not allowed in current status")
	ErrActionNotAllowedForRole = errors.New("action not allowed for role")
	ErrEscrowLocked            = errors.New("escrow is locked by another request")
	ErrRequestAlreadyProcessed = errors.New("request already processed")
	ErrTierLimitExceeded       = errors.New("amount exceeds KYC tier limit")
	ErrInvalidKYCTier          = errors.New("invalid kyc tier")
	ErrUnsupportedGateway      = errors.New("unsupported payment method")
	ErrPaymentNotFound         = errors.New("payment reference not found")
	ErrPaymentNotConfirmed     = errors.New("payment not confirmed by gateway")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrStaleStatus             = errors.New("escrow status changed concurrently")
)
