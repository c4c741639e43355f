package forensics

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Report `json:"data"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Total      int64     `json:"totalItems"`
	TotalPages int       `json:"totalPages"`
}

// Summary rekap verdict N hari terakhir
type Summary struct {
	Total      int `json:"total_reports"`
	Malicious  int `json:"likely_malicious"`
	Suspicious int `json:"possibly_suspicious"`
	Clean      int `json:"likely_clean"`
}

// TotalPages hitung jumlah halaman
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
