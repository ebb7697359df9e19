package dto

// GeneratorResponse describes one mapped generator
type GeneratorResponse struct {
	Key      string `json:"key"`
	Entity   string `json:"entity"`
	Property string `json:"property"`
	Table    string `json:"table"`
	Column   string `json:"column,omitempty"`
	Strategy string `json:"strategy"`
	Family   string `json:"family,omitempty"`
	Events   string `json:"events"`
	// StoreGenerated is true when the value only exists once the row is written
	StoreGenerated bool `json:"store_generated"`
}

// NextValuesRequest asks for one or more values of a generator
type NextValuesRequest struct {
	Count  int    `json:"count" validate:"omitempty,min=1"`
	Tenant string `json:"tenant" validate:"omitempty,max=128"`
}

// NextValuesResponse carries generated values in generation order
type NextValuesResponse struct {
	Key    string `json:"key"`
	Tenant string `json:"tenant,omitempty"`
	Values []any  `json:"values"`
}

// IssueTokenRequest asks for an operator token
type IssueTokenRequest struct {
	Subject string   `json:"subject" validate:"required,max=128"`
	Scopes  []string `json:"scopes" validate:"required,min=1,dive,oneof=generators:read generators:next"`
}
