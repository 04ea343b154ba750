package angelone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kuber/internal/gateway/broker"
	"kuber/internal/logger"
	"kuber/internal/metrics"

	"github.com/pquerna/otp/totp"
)

const loginPath = "/rest/auth/angelbroking/user/v1/loginByPassword"

type loginPayload struct {
	ClientCode string `json:"clientcode"`
	Password   string `json:"password"`
	TOTP       string `json:"totp"`
}

type loginData struct {
	JWTToken     string `json:"jwtToken"`
	RefreshToken string `json:"refreshToken"`
	FeedToken    string `json:"feedToken"`
}

// Login generates the current TOTP from the shared secret, authenticates, and
// installs the resulting session on the client. The session is returned so
// callers can persist or display it, but the core treats it as opaque.
func (c *Client) Login(ctx context.Context, clientCode, password, totpSecret string) (broker.Session, error) {
	if clientCode == "" || password == "" {
		return broker.Session{}, fmt.Errorf("client code and password are required")
	}
	code, err := totp.GenerateCode(totpSecret, time.Now())
	if err != nil {
		return broker.Session{}, fmt.Errorf("generating TOTP failed: %w", err)
	}
	env, _, err := c.do(ctx, http.MethodPost, loginPath, loginPayload{
		ClientCode: clientCode,
		Password:   password,
		TOTP:       code,
	}, false)
	if err != nil {
		metrics.BrokerCall("login", "error")
		return broker.Session{}, fmt.Errorf("login request failed: %w", err)
	}
	if !env.Status {
		metrics.BrokerCall("login", "rejected")
		return broker.Session{}, fmt.Errorf("login rejected: %s (%s)", env.Message, env.ErrorCode)
	}
	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return broker.Session{}, fmt.Errorf("decoding login response failed: %w", err)
	}
	if data.JWTToken == "" {
		return broker.Session{}, fmt.Errorf("login response missing access token")
	}
	session := broker.Session{
		AccessToken:  data.JWTToken,
		RefreshToken: data.RefreshToken,
		FeedToken:    data.FeedToken,
	}
	c.SetSession(session)
	metrics.BrokerCall("login", "ok")
	logger.Infof("broker session established for %s", clientCode)
	return session, nil
}
