package api

import "github.com/starford/componentkit/internal/catalog"

// Package is a catalog entry in API responses.
type Package = catalog.Package

// PackageListResponse wraps package listings.
type PackageListResponse struct {
	Packages []Package `json:"packages"`
	Total    int       `json:"total"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = catalog.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// InstallResponse carries Markdown install instructions for one package.
type InstallResponse struct {
	Package      string `json:"package"`
	Instructions string `json:"instructions"`
}
