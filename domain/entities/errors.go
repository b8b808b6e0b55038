package entities

import "errors"

// Lottery state machine errors
var (
	ErrAlreadyInitialized           = errors.New("lottery already initialized")
	ErrInvalidWindow                = errors.New("invalid sale window")
	ErrInvalidTicketPrice           = errors.New("ticket price must be positive")
	ErrLotteryNotFound              = errors.New("lottery not found")
	ErrLotteryNotOpen               = errors.New("lottery is not open")
	ErrNotAuthorized                = errors.New("not authorized")
	ErrCollectionNotInitialized     = errors.New("ticket collection not initialized")
	ErrCollectionAlreadyInitialized = errors.New("ticket collection already initialized")
	ErrRandomnessAlreadyRevealed    = errors.New("randomness already revealed")
	ErrIncorrectRandomnessAccount   = errors.New("incorrect randomness account")
	ErrWinnerChosen                 = errors.New("winner already chosen")
	ErrRandomnessNotResolved        = errors.New("randomness not resolved")
	ErrNoTickets                    = errors.New("no tickets sold")
	ErrWinnerNotChosen              = errors.New("winner not chosen")
	ErrNotVerifiedTicket            = errors.New("not verified ticket")
	ErrIncorrectTicket              = errors.New("incorrect ticket")
	ErrAlreadySettled               = errors.New("prize already claimed")
)

// Collaborator errors
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotYetResolved     = errors.New("randomness request not yet resolved")
	ErrRequestNotFound    = errors.New("randomness request not found")
	ErrAssetNotFound      = errors.New("asset not found")
	ErrNotAssetHolder     = errors.New("account does not hold the asset")
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrInvalidCommitment  = errors.New("reveal does not match commitment")
	ErrAlreadyRevealed    = errors.New("randomness request already revealed")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidRecipient   = errors.New("invalid recipient")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrInvalidWindow, "InvalidWindow"},
	{ErrInvalidTicketPrice, "InvalidTicketPrice"},
	{ErrLotteryNotFound, "LotteryNotFound"},
	{ErrLotteryNotOpen, "LotteryNotOpen"},
	{ErrNotAuthorized, "NotAuthorized"},
	{ErrCollectionNotInitialized, "CollectionNotInitialized"},
	{ErrCollectionAlreadyInitialized, "CollectionAlreadyInitialized"},
	{ErrRandomnessAlreadyRevealed, "RandomnessAlreadyRevealed"},
	{ErrIncorrectRandomnessAccount, "IncorrectRandomnessAccount"},
	{ErrWinnerChosen, "WinnerChosen"},
	{ErrRandomnessNotResolved, "RandomnessNotResolved"},
	{ErrNoTickets, "NoTickets"},
	{ErrWinnerNotChosen, "WinnerNotChosen"},
	{ErrNotVerifiedTicket, "NotVerifiedTicket"},
	{ErrIncorrectTicket, "IncorrectTicket"},
	{ErrAlreadySettled, "AlreadySettled"},
	{ErrInsufficientFunds, "InsufficientFunds"},
	{ErrNotYetResolved, "NotYetResolved"},
	{ErrRequestNotFound, "RequestNotFound"},
	{ErrAssetNotFound, "AssetNotFound"},
	{ErrNotAssetHolder, "NotAssetHolder"},
	{ErrDisplayNameTooLong, "DisplayNameTooLong"},
	{ErrInvalidCommitment, "InvalidCommitment"},
	{ErrAlreadyRevealed, "AlreadyRevealed"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidRecipient, "InvalidRecipient"},
}

// ErrorCode returns the stable wire code of a known error kind, or "Internal"
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "Internal"
}

// IsRetryable reports whether the caller should retry the same call later.
// Only unresolved randomness qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRandomnessNotResolved)
}
