package domain

import dErrors "otapproval/pkg/domain-errors"

// ApprovalAction is the decision a capability token authorises.
// Invariant: the value is one of the three supported actions.
type ApprovalAction string

const (
	ActionApprove     ApprovalAction = "approve"
	ActionReject      ApprovalAction = "reject"
	ActionRequestInfo ApprovalAction = "request-info"
)

// ApprovalActions lists every action in issuance order.
var ApprovalActions = []ApprovalAction{ActionApprove, ActionReject, ActionRequestInfo}

// ParseApprovalAction constructs an ApprovalAction from external input.
//
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseApprovalAction(s string) (ApprovalAction, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action cannot be empty")
	}
	a := ApprovalAction(s)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid action")
	}
	return a, nil
}

func (a ApprovalAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionRequestInfo:
		return true
	}
	return false
}

func (a ApprovalAction) String() string {
	return string(a)
}
