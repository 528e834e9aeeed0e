package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hyperbuds/hyperbuds-client/internal/session"
)

const DefaultRefreshPath = "/auth/refresh"

// TokenExchanger implements session.Exchanger against the refresh endpoint.
type TokenExchanger struct {
	client *Client
	path   string
}

var _ = session.Exchanger(&TokenExchanger{})

// NewTokenExchanger uses client for the refresh call. The call is always anonymous,
// so client does not need a token source.
func NewTokenExchanger(client *Client, path string) *TokenExchanger {
	if path == "" {
		path = DefaultRefreshPath
	}

	return &TokenExchanger{client: client, path: path}
}

type refreshResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	Tokens       *session.Tokens `json:"tokens"`
	Data         *session.Tokens `json:"data"`
}

func (e *TokenExchanger) Exchange(ctx context.Context, refreshToken string) (session.Tokens, error) {
	req := Request{
		Method:    http.MethodPost,
		Path:      e.path,
		Body:      map[string]string{"refreshToken": refreshToken},
		Anonymous: true,
	}

	var resp refreshResponse
	if err := e.client.DoJSON(ctx, req, &resp); err != nil {
		return session.Tokens{}, fmt.Errorf("exchanging refresh token: %w", err)
	}

	switch {
	case resp.AccessToken != "":
		return session.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
	case resp.Tokens != nil:
		return *resp.Tokens, nil
	case resp.Data != nil:
		return *resp.Data, nil
	}

	return session.Tokens{}, nil
}
