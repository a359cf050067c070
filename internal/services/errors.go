package services

import "errors"

// Domain errors. Their text is what API clients see.
var (
	ErrProductExists      = errors.New("Produto já cadastrado no sistema.")
	ErrProductNotFound    = errors.New("Produto não encontrado")
	ErrMissingCredentials = errors.New("Nome de usuário e senha são obrigatórios")
	ErrUsernameTaken      = errors.New("Nome de usuário já está em uso.")
	ErrInvalidCredentials = errors.New("Credenciais inválidas")
	ErrInvalidToken       = errors.New("Token inválido")
)
