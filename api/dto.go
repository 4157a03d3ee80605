/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Response wrappers returned to clients

Validation happens in handlers; DTOs are pure data carriers.
*/
package api

import (
	"github.com/vantage/client-engine/clients"
	"github.com/vantage/client-engine/segments"
)

// LoginRequest carries either operator credentials or a bare client id.
type LoginRequest struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// TokenResponse returns a freshly issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ErrorResponse is the JSON shape of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ClientListResponse pages through search results.
type ClientListResponse struct {
	Data       []clients.Record `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// RecommendationsResponse wraps matched products or offers for one client.
type RecommendationsResponse struct {
	ClientID string                    `json:"client_id"`
	Products []segments.Recommendation `json:"products,omitempty"`
	Offers   []segments.Recommendation `json:"offers,omitempty"`
}

// SampleIDsResponse lists example client ids for demos.
type SampleIDsResponse struct {
	IDs []string `json:"ids"`
}

// InvalidateCacheRequest clears one cached client, or everything when the id
// is empty.
type InvalidateCacheRequest struct {
	ClientID string `json:"client_id,omitempty"`
}

// CacheStatusResponse reports the cache state after an invalidation.
type CacheStatusResponse struct {
	Cached int `json:"cached"`
}
