package services

import "context"

// Renderer turns a prepared context map into final document bytes (HTML to
// PDF in production). The billing core never renders documents itself; it
// prepares the formatted values and hashes whatever comes back.
type Renderer interface {
	Render(ctx context.Context, document string, values map[string]string) ([]byte, error)
}
