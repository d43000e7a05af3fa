// internal/model/page.go
package model

// PageInfo is the pagination metadata the content store returns with every
// listing. The resolver loops while Page < TotalPages.
type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}
