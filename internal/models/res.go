package models

import "github.com/joshua-takyi/homeswift/internal/query"

type ApiResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       interface{}       `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Page       int               `json:"page,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Total      *int              `json:"total,omitempty"`
	TotalPages *int              `json:"totalPages,omitempty"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
	}
}

// ValidationResponse reports every rejected field at once.
func ValidationResponse(err string, fields map[string]string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
		Fields:  fields,
	}
}

// PaginatedResponse always carries total and totalPages, even when zero.
func PaginatedResponse(data interface{}, page query.Page, total int) ApiResponse {
	totalPages := page.TotalPages(total)
	return ApiResponse{
		Success:    true,
		Data:       data,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      &total,
		TotalPages: &totalPages,
	}
}
