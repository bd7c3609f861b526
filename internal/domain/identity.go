package domain

// Identity is a verified caller as resolved by the auth layer.
type Identity struct {
	ID      string
	Email   string
	Name    string
	Picture string
}
