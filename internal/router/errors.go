package router

import "errors"

var (
	ErrInvalidArgument     = errors.New("router: invalid argument")
	ErrDiagIDCollision     = errors.New("router: diag id bound to another process")
	ErrDiagIDExhausted     = errors.New("router: diag id space exhausted")
	ErrInvalidDiagID       = errors.New("router: diag id out of range")
	ErrUnknownCommand      = errors.New("router: no handler for command")
	ErrPeripheralClosed    = errors.New("router: peripheral closed")
	ErrDuplicatePeripheral = errors.New("router: duplicate peripheral name")
	ErrRouteLimit          = errors.New("router: route table full")
	ErrNoControlChannel    = errors.New("router: peripheral has no control channel")
	ErrShortCommand        = errors.New("router: diag command too short")
)
