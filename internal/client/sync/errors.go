package sync

import "errors"

var (
	// ErrMissingToken no bearer token is stored; the pass did not contact the server
	ErrMissingToken = errors.New("missing_token")

	// errNotCreated мутация относится к заметке, создание которой еще не дошло до сервера
	errNotCreated = errors.New("note is not created on server yet")
)

// missingTokenError значение lastError для записи, обработка которой не началась без токена
const missingTokenError = "missing_token"
