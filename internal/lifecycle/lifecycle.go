// Package lifecycle is the escrow state machine: pure lookup tables over
// (status, role) with no I/O. Consumed by the service layer for authorization
// and by API responses for UI affordance. Lookups never fail; statuses this
// build does not know about degrade to safe defaults so newer servers cannot
// break older clients.
package lifecycle

import (
	"github.com/safehold/escrowpay/internal/models"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
)

type Action string

const (
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionFund    Action = "fund"
	ActionDeliver Action = "deliver"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
	ActionDispute Action = "dispute"
	ActionPayout  Action = "payout"
	ActionRate    Action = "rate"
	ActionView    Action = "view"
)

// StatusInfo is the display triple for a status.
type StatusInfo struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Text  string `json:"text"`
}

var statusInfo = map[models.EscrowStatus]StatusInfo{
	models.StatusPending:   {Color: "yellow", Icon: "clock", Text: "Pending Acceptance"},
	models.StatusAccepted:  {Color: "blue", Icon: "handshake", Text: "Awaiting Payment"},
	models.StatusFunded:    {Color: "indigo", Icon: "lock", Text: "Funds Held"},
	models.StatusDelivered: {Color: "purple", Icon: "package", Text: "Delivered"},
	models.StatusCompleted: {Color: "green", Icon: "check", Text: "Completed"},
	models.StatusPaidOut:   {Color: "green", Icon: "banknote", Text: "Paid Out"},
	models.StatusCancelled: {Color: "gray", Icon: "x", Text: "Cancelled"},
	models.StatusDisputed:  {Color: "red", Icon: "alert", Text: "Disputed"},
}

// StatusInfoFor returns the display triple for any status string. Unknown
// statuses fall back to the pending entry rather than erroring.
func StatusInfoFor(status models.EscrowStatus) StatusInfo {
	if info, ok := statusInfo[status]; ok {
		return info
	}
	return statusInfo[models.StatusPending]
}

// NextAction is the single affordance a viewer gets for an escrow. A nil-ish
// Action with Disabled=true means "nothing to do, here is why".
type NextAction struct {
	Text     string `json:"text"`
	Action   Action `json:"action,omitempty"`
	Disabled bool   `json:"disabled"`
	Primary  bool   `json:"primary,omitempty"`
}

type actionKey struct {
	status models.EscrowStatus
	role   models.Role
}

var nextActions = map[actionKey]NextAction{
	{models.StatusPending, models.RoleBuyer}:    {Text: "Waiting for seller", Disabled: true},
	{models.StatusPending, models.RoleSeller}:   {Text: "Accept Escrow", Action: ActionAccept, Primary: true},
	{models.StatusAccepted, models.RoleBuyer}:   {Text: "Pay Now", Action: ActionFund, Primary: true},
	{models.StatusAccepted, models.RoleSeller}:  {Text: "Waiting for payment", Disabled: true},
	{models.StatusFunded, models.RoleBuyer}:     {Text: "Waiting for delivery", Disabled: true},
	{models.StatusFunded, models.RoleSeller}:    {Text: "Mark as Delivered", Action: ActionDeliver, Primary: true},
	{models.StatusDelivered, models.RoleBuyer}:  {Text: "Confirm Receipt", Action: ActionConfirm, Primary: true},
	{models.StatusDelivered, models.RoleSeller}: {Text: "Waiting for confirmation", Disabled: true},
	{models.StatusCompleted, models.RoleBuyer}:  {Text: "Rate Seller", Action: ActionRate},
	{models.StatusCompleted, models.RoleSeller}: {Text: "Processing payout", Disabled: true},
	{models.StatusPaidOut, models.RoleBuyer}:    {Text: "Complete", Disabled: true},
	{models.StatusPaidOut, models.RoleSeller}:   {Text: "Payment received", Disabled: true},
	{models.StatusCancelled, models.RoleBuyer}:  {Text: "View Details", Action: ActionView},
	{models.StatusCancelled, models.RoleSeller}: {Text: "View Details", Action: ActionView},
	{models.StatusDisputed, models.RoleBuyer}:   {Text: "View Dispute", Action: ActionView},
	{models.StatusDisputed, models.RoleSeller}:  {Text: "View Dispute", Action: ActionView},
}

// NextActionFor returns the affordance for (status, role). Unknown statuses
// degrade to a view-only action for either role.
func NextActionFor(status models.EscrowStatus, role models.Role) NextAction {
	if a, ok := nextActions[actionKey{status, role}]; ok {
		return a
	}
	return NextAction{Text: "View Details", Action: ActionView}
}

// CanCancel reports whether the escrow can still be called off, which is only
// before funds move.
func CanCancel(status models.EscrowStatus) bool {
	return status == models.StatusPending || status == models.StatusAccepted
}

// CanDispute reports whether a dispute can be raised: funds are held but the
// buyer has not confirmed.
func CanDispute(status models.EscrowStatus) bool {
	return status == models.StatusFunded || status == models.StatusDelivered
}

type transitionKey struct {
	from   models.EscrowStatus
	action Action
}

type transition struct {
	to    models.EscrowStatus
	roles []models.Role
}

var transitions = map[transitionKey]transition{
	{models.StatusPending, ActionAccept}:    {models.StatusAccepted, []models.Role{models.RoleSeller}},
	{models.StatusPending, ActionReject}:    {models.StatusCancelled, []models.Role{models.RoleSeller}},
	{models.StatusPending, ActionCancel}:    {models.StatusCancelled, []models.Role{models.RoleBuyer}},
	{models.StatusAccepted, ActionFund}:     {models.StatusFunded, []models.Role{models.RoleBuyer}},
	{models.StatusAccepted, ActionCancel}:   {models.StatusCancelled, []models.Role{models.RoleBuyer, models.RoleSeller}},
	{models.StatusFunded, ActionDeliver}:    {models.StatusDelivered, []models.Role{models.RoleSeller}},
	{models.StatusFunded, ActionDispute}:    {models.StatusDisputed, []models.Role{models.RoleBuyer, models.RoleSeller}},
	{models.StatusDelivered, ActionConfirm}: {models.StatusCompleted, []models.Role{models.RoleBuyer}},
	{models.StatusDelivered, ActionDispute}: {models.StatusDisputed, []models.Role{models.RoleBuyer, models.RoleSeller}},
	{models.StatusCompleted, ActionPayout}:  {models.StatusPaidOut, []models.Role{models.RoleSystem}},
}

// Transition resolves the next status for (from, action, role). cancelled and
// disputed have no outgoing transitions; resolution happens out of band.
func Transition(from models.EscrowStatus, action Action, role models.Role) (models.EscrowStatus, error) {
	t, ok := transitions[transitionKey{from, action}]
	if !ok {
		return "", pkgerrors.ErrInvalidTransition
	}
	for _, r := range t.roles {
		if r == role {
			return t.to, nil
		}
	}
	return "", pkgerrors.ErrActionNotAllowedForRole
}

// Terminal reports whether no party action can move the escrow any further.
func Terminal(status models.EscrowStatus) bool {
	switch status {
	case models.StatusPaidOut, models.StatusCancelled, models.StatusDisputed:
		return true
	}
	return false
}
