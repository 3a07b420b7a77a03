package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/andymarkow/bankcards/internal/httpclient"
	"github.com/andymarkow/bankcards/internal/server/models"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

var ErrNotAuthenticated = errors.New("client is not authenticated")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

// Client calls the bank cards HTTP API on behalf of a single user.
type Client struct {
	log    *slog.Logger
	client *resty.Client
	token  string
}

type Option func(c *Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

func WithClient(client *resty.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithToken sets an access token obtained earlier.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		log:    slog.Default(),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.client.SetBaseURL(baseURL)

	return c
}

func (c *Client) Token() string {
	return c.token
}

// Login exchanges credentials for a token pair and keeps the access token.
func (c *Client) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	tokens := new(models.TokenResponse)

	err := c.do(c.client.R().
		SetContext(ctx).
		SetBody(models.LoginRequest{Username: username, Password: password}).
		SetResult(tokens), http.MethodPost, "/api/auth/login")
	if err != nil {
		return nil, err
	}

	c.token = tokens.AccessToken

	return tokens, nil
}

func (c *Client) Cards(ctx context.Context, page, size int) (*models.PageResponse[models.CardResponse], error) {
	result := new(models.PageResponse[models.CardResponse])

	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	req.SetQueryParams(map[string]string{
		"page": strconv.Itoa(page),
		"size": strconv.Itoa(size),
	}).SetResult(result)

	if err := c.do(req, http.MethodGet, "/api/users/cards"); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) Balance(ctx context.Context) (*models.BalanceResponse, error) {
	result := new(models.BalanceResponse)

	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.do(req.SetResult(result), http.MethodGet, "/api/users/balance"); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) Transfer(
	ctx context.Context, sourceCardID, targetCardID int64, amount decimal.Decimal, description string,
) (*models.TransferResponse, error) {
	result := new(models.TransferResponse)

	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	req.SetBody(models.TransferRequest{
		SourceCardID: sourceCardID,
		TargetCardID: targetCardID,
		Amount:       amount,
		Description:  description,
	}).SetResult(result)

	if err := c.do(req, http.MethodPost, "/api/users/transfer"); err != nil {
		return nil, err
	}

	return result, nil
}

// RequestBlock asks an administrator to block the card.
func (c *Client) RequestBlock(ctx context.Context, cardID int64) (*models.BlockRequestResponse, error) {
	result := new(models.BlockRequestResponse)

	req, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}

	req.SetPathParam("cardId", strconv.FormatInt(cardID, 10)).SetResult(result)

	if err := c.do(req, http.MethodPost, "/api/users/request/{cardId}"); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) authorized(ctx context.Context) (*resty.Request, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	return c.client.R().SetContext(ctx).SetAuthToken(c.token), nil
}

func (c *Client) do(req *resty.Request, method, url string) error {
	resp, err := req.SetError(new(errorBody)).Execute(method, url)
	if err != nil {
		return fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}

		if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
			apiErr.Message = body.Error
		}

		c.log.Debug("api request failed",
			slog.String("method", method),
			slog.String("url", url),
			slog.Int("status", apiErr.StatusCode),
		)

		return apiErr
	}

	return nil
}
