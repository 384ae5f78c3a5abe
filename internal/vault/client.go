package vault

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"VaultSentinel/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AmountPlaces is the precision deposits are sent with.
const AmountPlaces = 8

const balancesQuery = `query UserBalances {
  user {
    id
    balances {
      available { amount currency }
      vault { amount currency }
    }
  }
}`

const depositMutation = `mutation CreateVaultDeposit($currency: CurrencyEnum!, $amount: Float!) {
  createVaultDeposit(currency: $currency, amount: $amount) {
    id
    amount
    currency
    user {
      id
      balances {
        available { amount currency }
        vault { amount currency }
      }
    }
  }
}`

// Config holds the platform endpoint and credential.
type Config struct {
	BaseURL  string
	Token    string
	ProxyURL string
	Language string // x-language header, "en" when empty
	Timeout  time.Duration
}

// Confirmation is the platform's record of an accepted deposit.
type Confirmation struct {
	ID       string
	Amount   float64
	Currency string
	Balances model.BalanceSheet
}

// Client talks to the platform's GraphQL endpoint. It never retries.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// NewClient builds a client for cfg.BaseURL.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-language", cfg.Language)
	if cfg.Token != "" {
		c.SetHeader("x-access-token", cfg.Token)
	}
	if cfg.ProxyURL != "" {
		c.SetProxy(cfg.ProxyURL)
	}
	return &Client{http: c, log: log}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type wireAmount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type wireUser struct {
	ID       string `json:"id"`
	Balances []struct {
		Available wireAmount `json:"available"`
		Vault     wireAmount `json:"vault"`
	} `json:"balances"`
}

func (u *wireUser) sheet() model.BalanceSheet {
	s := make(model.BalanceSheet, len(u.Balances))
	for _, b := range u.Balances {
		cur := strings.ToLower(b.Available.Currency)
		if cur == "" {
			cur = strings.ToLower(b.Vault.Currency)
		}
		if cur == "" {
			continue
		}
		s[cur] = model.Balances{Available: b.Available.Amount, Vault: b.Vault.Amount}
	}
	return s
}

// FetchBalances reads the available and vault amount of every currency.
func (c *Client) FetchBalances(ctx context.Context) (model.BalanceSheet, error) {
	const op = "UserBalances"
	data, err := c.call(ctx, op, gqlRequest{Query: balancesQuery, Variables: map[string]any{}})
	if err != nil {
		return nil, err
	}
	var out struct {
		User *wireUser `json:"user"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Err: errors.Wrap(err, "decode data")}
	}
	if out.User == nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Err: errors.New("response has no user")}
	}
	return out.User.sheet(), nil
}

// Deposit moves amount of currency into the vault. Anything short of a
// createVaultDeposit record is a failure.
func (c *Client) Deposit(ctx context.Context, currency string, amount float64) (*Confirmation, error) {
	const op = "CreateVaultDeposit"
	rounded := decimal.NewFromFloat(amount).Round(AmountPlaces)
	if !rounded.IsPositive() {
		return nil, &Error{Kind: KindRejected, Op: op, Err: errors.Errorf("amount %v rounds to %s", amount, rounded)}
	}

	data, err := c.call(ctx, op, gqlRequest{
		Query: depositMutation,
		Variables: map[string]any{
			"currency": strings.ToLower(currency),
			"amount":   rounded.InexactFloat64(),
		},
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		CreateVaultDeposit *struct {
			ID       string   `json:"id"`
			Amount   float64  `json:"amount"`
			Currency string   `json:"currency"`
			User     wireUser `json:"user"`
		} `json:"createVaultDeposit"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Err: errors.Wrap(err, "decode data")}
	}
	d := out.CreateVaultDeposit
	if d == nil {
		return nil, &Error{Kind: KindRejected, Op: op, Err: errors.New("no deposit confirmation in response")}
	}

	c.log.Debug("vault deposit confirmed",
		zap.String("deposit_id", d.ID), zap.String("currency", d.Currency), zap.Float64("amount", d.Amount))
	return &Confirmation{
		ID:       d.ID,
		Amount:   d.Amount,
		Currency: strings.ToLower(d.Currency),
		Balances: d.User.sheet(),
	}, nil
}

// call posts one GraphQL operation and returns its data member.
func (c *Client) call(ctx context.Context, op string, req gqlRequest) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-operation-name", op).
		SetBody(req).
		Post("/_api/graphql")
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Err: errors.Wrap(err, "post")}
	}
	if !resp.IsSuccess() {
		return nil, &Error{Kind: KindHTTP, Op: op, Status: resp.StatusCode(),
			Err: errors.Errorf("http non-2xx: %s", truncate(resp.String(), 200))}
	}

	var body gqlResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Err: errors.Wrap(err, "decode body")}
	}
	if len(body.Data) == 0 || string(body.Data) == "null" {
		if len(body.Errors) > 0 {
			return nil, &Error{Kind: KindRejected, Op: op, Err: errors.New(body.Errors[0].Message)}
		}
		return nil, &Error{Kind: KindMalformed, Op: op, Err: errors.New("response has no data")}
	}
	if len(body.Errors) > 0 {
		c.log.Warn("graphql errors alongside data", zap.String("operation", op), zap.String("error", body.Errors[0].Message))
	}
	return body.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
