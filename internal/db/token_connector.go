package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/upk240z/zipimport/pkg/zipimport"
)

// TokenExpiryWarning is the remaining token lifetime below which a warning is logged.
const TokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector connects to cloud-hosted PostgreSQL that authenticates
// via short-lived tokens (AWS IAM, Azure Entra ID). The token is acquired
// once and used as the password.
type TokenBasedConnector struct {
	config        *zipimport.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	logger        zipimport.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *zipimport.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger zipimport.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	c.logger.Verbose("acquiring token from %s", c.tokenProvider)

	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s token: %w: %w", c.providerName, zipimport.ErrConnectionFailed, err)
	}

	if remaining := time.Until(expiresOn); remaining < TokenExpiryWarning {
		c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
	}

	configWithToken := *c.config
	configWithToken.Password = token

	return openPool(ctx, &configWithToken, c.logger)
}
