package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/toplikes/internal/models"
	"github.com/desertthunder/toplikes/internal/shared"
	"golang.org/x/oauth2"
)

const defaultHTTPTimeout = 30 * time.Second

// TokenExchangeError is returned when the token endpoint rejects the code or its response is unusable.
//
// It matches [shared.ErrTokenExchange] with [errors.Is].
type TokenExchangeError struct {
	StatusCode  int    // HTTP status, 0 when no response was received or the status was 2xx
	ErrorCode   string // RFC 6749 "error" field, e.g. invalid_grant
	Description string // RFC 6749 "error_description" field
	Body        string // Raw response body when the provider returned one
	Err         error
}

func (e *TokenExchangeError) Error() string {
	msg := shared.ErrTokenExchange.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.ErrorCode != "" {
		msg += ": " + e.ErrorCode
		if e.Description != "" {
			msg += " (" + e.Description + ")"
		}
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

func (e *TokenExchangeError) Is(target error) bool {
	return target == shared.ErrTokenExchange
}

func newTokenExchangeError(err error) *TokenExchangeError {
	exErr := &TokenExchangeError{Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			exErr.StatusCode = retrieveErr.Response.StatusCode
		}
		exErr.ErrorCode = retrieveErr.ErrorCode
		exErr.Description = retrieveErr.ErrorDescription
		exErr.Body = string(retrieveErr.Body)
	}

	return exErr
}

// ExchangerOptions configures an [Exchanger].
type ExchangerOptions struct {
	ClientID   string
	TokenURL   string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Exchanger trades an authorization code and PKCE verifier for an access token.
type Exchanger struct {
	clientID   string
	tokenURL   string
	httpClient *http.Client
	logger     *log.Logger
}

// NewExchanger creates an Exchanger. A nil HTTPClient is replaced with one that has a finite timeout.
func NewExchanger(opts ExchangerOptions) *Exchanger {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Exchanger{
		clientID:   opts.ClientID,
		tokenURL:   opts.TokenURL,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
}

// Exchange issues one form-encoded POST to the token endpoint with client_id, grant_type=authorization_code,
// code, redirect_uri and code_verifier. redirectURI must be the one used in the authorize URL.
//
// The request is never retried.
func (e *Exchanger) Exchange(ctx context.Context, code, redirectURI, verifier string) (models.AccessToken, error) {
	config := &oauth2.Config{
		ClientID:    e.clientID,
		RedirectURL: redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  e.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	e.logger.Debug("exchanging authorization code", "token_url", e.tokenURL)

	token, err := config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return models.AccessToken{}, newTokenExchangeError(err)
	}

	accessToken := models.AccessToken{
		Value:     token.AccessToken,
		TokenType: token.Type(),
		Expiry:    token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		accessToken.Scope = scope
	}

	e.logger.Info("access token obtained", "type", accessToken.TokenType, "scope", accessToken.Scope)

	return accessToken, nil
}
