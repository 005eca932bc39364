package token

import (
	"encoding/json"
	"errors"
)

// InitialBalance seeds one account at instantiation.
type InitialBalance struct {
	Address string `json:"address"`
	Amount  Amount `json:"amount"`
}

// MinterData names the sole mint authority and an optional supply cap.
type MinterData struct {
	Minter string  `json:"minter"`
	Cap    *Amount `json:"cap,omitempty"`
}

// Logo is either an off-chain URL or an embedded image. Exactly one
// field may be set.
type Logo struct {
	URL string `json:"url,omitempty"`
	SVG []byte `json:"embedded_svg,omitempty"`
	PNG []byte `json:"embedded_png,omitempty"`
}

// MarketingInstantiateInfo carries the optional marketing block of an
// InstantiateMsg. Marketing names the account allowed to update it later.
type MarketingInstantiateInfo struct {
	Project     string `json:"project,omitempty"`
	Description string `json:"description,omitempty"`
	Marketing   string `json:"marketing,omitempty"`
	Logo        *Logo  `json:"logo,omitempty"`
}

// InstantiateMsg establishes the token: metadata, initial distribution and
// optional minter.
type InstantiateMsg struct {
	Name            string                    `json:"name"`
	Symbol          string                    `json:"symbol"`
	Decimals        uint8                     `json:"decimals"`
	InitialBalances []InitialBalance          `json:"initial_balances"`
	Mint            *MinterData               `json:"mint,omitempty"`
	Marketing       *MarketingInstantiateInfo `json:"marketing,omitempty"`
}

// ExecuteMsg is the tagged union over all state-transition operations.
// Exactly one field must be set.
type ExecuteMsg struct {
	Transfer          *TransferMsg          `json:"transfer,omitempty"`
	Burn              *BurnMsg              `json:"burn,omitempty"`
	Send              *SendMsg              `json:"send,omitempty"`
	Mint              *MintMsg              `json:"mint,omitempty"`
	IncreaseAllowance *IncreaseAllowanceMsg `json:"increase_allowance,omitempty"`
	DecreaseAllowance *DecreaseAllowanceMsg `json:"decrease_allowance,omitempty"`
	TransferFrom      *TransferFromMsg      `json:"transfer_from,omitempty"`
	BurnFrom          *BurnFromMsg          `json:"burn_from,omitempty"`
	SendFrom          *SendFromMsg          `json:"send_from,omitempty"`
	UpdateMinter      *UpdateMinterMsg      `json:"update_minter,omitempty"`
	UpdateMarketing   *UpdateMarketingMsg   `json:"update_marketing,omitempty"`
	UploadLogo        *Logo                 `json:"upload_logo,omitempty"`
}

// ErrEmptyExecuteMsg is returned when no variant is set.
var ErrEmptyExecuteMsg = errors.New("execute message has no variant set")

type TransferMsg struct {
	Recipient string `json:"recipient"`
	Amount    Amount `json:"amount"`
}

type BurnMsg struct {
	Amount Amount `json:"amount"`
}

// SendMsg transfers to a contract account and notifies it with an opaque
// payload. A rejected notification rolls back the whole invocation.
type SendMsg struct {
	Contract string          `json:"contract"`
	Amount   Amount          `json:"amount"`
	Msg      json.RawMessage `json:"msg,omitempty"`
}

type MintMsg struct {
	Recipient string `json:"recipient"`
	Amount    Amount `json:"amount"`
}

type IncreaseAllowanceMsg struct {
	Spender string      `json:"spender"`
	Amount  Amount      `json:"amount"`
	Expires *Expiration `json:"expires,omitempty"`
}

type DecreaseAllowanceMsg struct {
	Spender string      `json:"spender"`
	Amount  Amount      `json:"amount"`
	Expires *Expiration `json:"expires,omitempty"`
}

type TransferFromMsg struct {
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	Amount    Amount `json:"amount"`
}

type BurnFromMsg struct {
	Owner  string `json:"owner"`
	Amount Amount `json:"amount"`
}

type SendFromMsg struct {
	Owner    string          `json:"owner"`
	Contract string          `json:"contract"`
	Amount   Amount          `json:"amount"`
	Msg      json.RawMessage `json:"msg,omitempty"`
}

// UpdateMinterMsg reassigns or, with a nil NewMinter, permanently revokes
// the mint authority.
type UpdateMinterMsg struct {
	NewMinter *string `json:"new_minter"`
}

// UpdateMarketingMsg updates marketing metadata; nil fields are untouched,
// empty strings clear.
type UpdateMarketingMsg struct {
	Project     *string `json:"project,omitempty"`
	Description *string `json:"description,omitempty"`
	Marketing   *string `json:"marketing,omitempty"`
}

// QueryMsg is the tagged union over read-only projections.
type QueryMsg struct {
	Balance       *BalanceQuery       `json:"balance,omitempty"`
	Allowance     *AllowanceQuery     `json:"allowance,omitempty"`
	AllAllowances *AllAllowancesQuery `json:"all_allowances,omitempty"`
	AllAccounts   *AllAccountsQuery   `json:"all_accounts,omitempty"`
	TokenInfo     *TokenInfoQuery     `json:"token_info,omitempty"`
	Minter        *MinterQuery        `json:"minter,omitempty"`
	MarketingInfo *MarketingQuery     `json:"marketing_info,omitempty"`
	DownloadLogo  *DownloadLogoQuery  `json:"download_logo,omitempty"`
}

// ErrEmptyQueryMsg is returned when no variant is set.
var ErrEmptyQueryMsg = errors.New("query message has no variant set")

type BalanceQuery struct {
	Address string `json:"address"`
}

type AllowanceQuery struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type AllAllowancesQuery struct {
	Owner      string `json:"owner"`
	StartAfter string `json:"start_after,omitempty"`
	Limit      uint32 `json:"limit,omitempty"`
}

type AllAccountsQuery struct {
	StartAfter string `json:"start_after,omitempty"`
	Limit      uint32 `json:"limit,omitempty"`
}

type (
	TokenInfoQuery    struct{}
	MinterQuery       struct{}
	MarketingQuery    struct{}
	DownloadLogoQuery struct{}
)

// Responses.

type BalanceResponse struct {
	Balance Amount `json:"balance"`
	Display string `json:"display,omitempty"`
}

type AllowanceResponse struct {
	Allowance Amount     `json:"allowance"`
	Expires   Expiration `json:"expires"`
}

type AllowanceInfo struct {
	Spender   string     `json:"spender"`
	Allowance Amount     `json:"allowance"`
	Expires   Expiration `json:"expires"`
}

type AllAllowancesResponse struct {
	Allowances []AllowanceInfo `json:"allowances"`
}

type AllAccountsResponse struct {
	Accounts []string `json:"accounts"`
}

type TokenInfoResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply Amount `json:"total_supply"`
	Display     string `json:"display,omitempty"`
}

type MinterResponse struct {
	Minter string  `json:"minter"`
	Cap    *Amount `json:"cap,omitempty"`
}

type MarketingInfoResponse struct {
	Project     string `json:"project,omitempty"`
	Description string `json:"description,omitempty"`
	Marketing   string `json:"marketing,omitempty"`
	HasLogo     bool   `json:"has_logo"`
}

type DownloadLogoResponse struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}
