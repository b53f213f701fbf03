// internal/relay/models.go
package relay

type Request struct {
	Prompt string `json:"prompt"`
}

type Response struct {
	Narrative string `json:"narrative"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
