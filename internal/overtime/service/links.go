package service

import (
	"net/url"
	"strings"

	approvalmodels "otapproval/internal/approval/models"
	id "otapproval/pkg/domain"
)

// LinkBuilder renders approval URLs of the form
// <base>/approve?requestId=<id>&action=<action>&token=<secret>.
type LinkBuilder struct {
	base string
}

func NewLinkBuilder(baseURL string) *LinkBuilder {
	return &LinkBuilder{base: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// Link returns the approval URL for one token.
func (b *LinkBuilder) Link(requestID id.RequestID, action id.ApprovalAction, secret string) string {
	return b.base + "/approve?requestId=" + url.QueryEscape(requestID.String()) +
		"&action=" + url.QueryEscape(action.String()) +
		"&token=" + url.QueryEscape(secret)
}

// Links maps each token's action to its URL. Tokens must carry their secret.
func (b *LinkBuilder) Links(tokens []*approvalmodels.ApprovalToken) map[id.ApprovalAction]string {
	links := make(map[id.ApprovalAction]string, len(tokens))
	for _, token := range tokens {
		links[token.Action] = b.Link(token.RequestID, token.Action, token.Secret)
	}
	return links
}
