package types

// InterpretResponse is the successful body of POST /api/interpret/bazi.
type InterpretResponse struct {
	Content string `json:"content"`
}
