package models

import (
	"fmt"
	"io"
	"time"
)

type Marketplace string

const (
	MarketplaceWildberries  Marketplace = "wildberries"
	MarketplaceOzon         Marketplace = "ozon"
	MarketplaceYandexMarket Marketplace = "yandex_market"
)

var Marketplaces = []Marketplace{MarketplaceWildberries, MarketplaceOzon, MarketplaceYandexMarket}

func ParseMarketplace(s string) (Marketplace, error) {
	for _, m := range Marketplaces {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown marketplace %q", s)
}

// Credential is an API credential for one marketplace seller account.
// ClientID is used by Ozon and Yandex Market (campaign id); Wildberries only needs APIKey.
type Credential struct {
	ID          string      `json:"id"`
	Marketplace Marketplace `json:"marketplace"`
	Name        string      `json:"name"`
	APIKey      string      `json:"api_key"`
	ClientID    string      `json:"client_id,omitempty"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CredentialInput is the writable subset of Credential. Pointer fields let
// PATCH distinguish "unset" from "empty".
type CredentialInput struct {
	Name     *string `json:"name,omitempty"`
	APIKey   *string `json:"api_key,omitempty"`
	ClientID *string `json:"client_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

type SalesSummary struct {
	Marketplace Marketplace `json:"marketplace,omitempty"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	Orders      int         `json:"orders"`
	Units       int         `json:"units"`
	Revenue     float64     `json:"revenue"`
	Days        []SalesDay  `json:"days"`
}

type SalesDay struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Units   int     `json:"units"`
	Revenue float64 `json:"revenue"`
}

// Upload describes one file sent as multipart/form-data.
type Upload struct {
	FieldName string
	FileName  string
	Content   io.Reader
	Fields    map[string]string
}
