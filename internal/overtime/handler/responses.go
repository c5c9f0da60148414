package handler

import (
	"time"

	approvalmodels "otapproval/internal/approval/models"
	"otapproval/internal/overtime/models"
	"otapproval/internal/overtime/service"
)

type dataResponse[T any] struct {
	Data T `json:"data"`
}

type DocNoResponse struct {
	DocNo string `json:"docNo"`
}

// TokenResponse describes one freshly issued approval token. The secret is
// only ever returned here, at creation.
type TokenResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenStateResponse describes an issued token without its secret.
type TokenStateResponse struct {
	ID        string     `json:"id"`
	Action    string     `json:"action"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

// DetailResponse is the HTTP response for GET /api/public/ot-requests/{id}.
type DetailResponse struct {
	Data   *models.Request      `json:"data"`
	Tokens []TokenStateResponse `json:"tokens"`
}

// SubmitResponse is the HTTP response for POST /api/public/ot-requests.
type SubmitResponse struct {
	Data   *models.Request   `json:"data"`
	Tokens []TokenResponse   `json:"tokens"`
	Links  map[string]string `json:"links"`
}

func FromSubmission(submission *service.Submission) *SubmitResponse {
	links := make(map[string]string, len(submission.Links))
	for action, link := range submission.Links {
		links[action.String()] = link
	}
	return &SubmitResponse{
		Data:   submission.Request,
		Tokens: fromTokens(submission.Tokens),
		Links:  links,
	}
}

func fromTokens(tokens []*approvalmodels.ApprovalToken) []TokenResponse {
	out := make([]TokenResponse, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, TokenResponse{
			ID:        token.ID.String(),
			Action:    token.Action.String(),
			Token:     token.Secret,
			ExpiresAt: token.ExpiresAt,
		})
	}
	return out
}

func fromTokenStates(tokens []*approvalmodels.ApprovalToken) []TokenStateResponse {
	out := make([]TokenStateResponse, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, TokenStateResponse{
			ID:        token.ID.String(),
			Action:    token.Action.String(),
			ExpiresAt: token.ExpiresAt,
			UsedAt:    token.UsedAt,
		})
	}
	return out
}
